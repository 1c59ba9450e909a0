// Package conversation keeps the operator's chat with the assistant.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/metrics"
)

// Greeting is the assistant turn every log starts with.
const Greeting = "Ready. Ask about architecture, hotspots, or risk."

// Role of a turn author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the log.
type Turn struct {
	Role Role
	Text string
}

// Log is an append-only list of turns. Send always appends a user turn
// immediately followed by its assistant reply.
type Log struct {
	mu       sync.RWMutex
	turns    []Turn
	answerer Answerer
	context  func() AnswerContext
	metrics  *metrics.Metrics
	recovery *logging.RecoveryHandler
	log      *logging.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithContext supplies the summary and documents handed to the answerer.
func WithContext(fn func() AnswerContext) Option {
	return func(l *Log) { l.context = fn }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Log) { l.metrics = m }
}

// NewLog creates a log holding the greeting.
func NewLog(a Answerer, opts ...Option) *Log {
	l := &Log{
		turns:    []Turn{{Role: RoleAssistant, Text: Greeting}},
		answerer: a,
		context:  func() AnswerContext { return AnswerContext{Summary: DefaultSummary()} },
		metrics:  metrics.Global(),
		recovery: logging.NewRecoveryHandler("conversation"),
		log:      logging.New("conversation"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Send appends text as a user turn and the answerer's reply as an
// assistant turn. Blank text is ignored and reports false.
func (l *Log) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, Turn{Role: RoleUser, Text: text})
	history := make([]Turn, len(l.turns))
	copy(history, l.turns)

	var reply string
	err := l.recovery.WrapError(func() error {
		var err error
		reply, err = l.answerer.Respond(ctx, history, l.context())
		return err
	})
	if err != nil {
		l.log.Warn("answer_failed", map[string]interface{}{"turns": len(history)}, err)
		reply = fmt.Sprintf("answer unavailable: %v", err)
	}

	l.turns = append(l.turns, Turn{Role: RoleAssistant, Text: reply})
	l.metrics.RecordMessage()
	return true
}

// Turns returns a copy of the log.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Last returns the most recent turn.
func (l *Log) Last() Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.turns[len(l.turns)-1]
}

// Documents adapts a registry to the answer context.
func Documents(r *ingest.Registry) []ingest.Record {
	if r == nil {
		return nil
	}
	return r.Records()
}
