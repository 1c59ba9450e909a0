package conversation

import (
	"context"
	"fmt"

	"github.com/mozaika228/codebaseagent/internal/config"
	"github.com/mozaika228/codebaseagent/internal/ingest"
)

// Summary is the session's derived view of the analysed repository.
type Summary struct {
	TopModule  string
	Confidence string
	Risk       string
}

// DefaultSummary returns the built-in summary values.
func DefaultSummary() Summary {
	return Summary{
		TopModule:  config.DefaultTopModule,
		Confidence: config.DefaultConfidence,
		Risk:       config.DefaultRisk,
	}
}

// SummaryFromEnv reads the summary from the environment.
func SummaryFromEnv(env *config.CBAEnv) Summary {
	return Summary{
		TopModule:  env.TopModule,
		Confidence: env.Confidence,
		Risk:       env.Risk,
	}
}

// AnswerContext is what an answerer may draw on besides the turns.
type AnswerContext struct {
	Summary   Summary
	Documents []ingest.Record
}

// Answerer produces the assistant reply to the last user turn.
type Answerer interface {
	Respond(ctx context.Context, turns []Turn, c AnswerContext) (string, error)
}

// AnswererFunc adapts a function to Answerer.
type AnswererFunc func(ctx context.Context, turns []Turn, c AnswerContext) (string, error)

// Respond calls f.
func (f AnswererFunc) Respond(ctx context.Context, turns []Turn, c AnswerContext) (string, error) {
	return f(ctx, turns, c)
}

// TemplateAnswerer is the offline stand-in: a fixed reply built from the
// summary's top module. It ignores the question.
type TemplateAnswerer struct{}

// Respond returns the templated reply.
func (TemplateAnswerer) Respond(_ context.Context, _ []Turn, c AnswerContext) (string, error) {
	return fmt.Sprintf("Draft answer: focus on %s and test before merge.", c.Summary.TopModule), nil
}
