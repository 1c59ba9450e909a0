package render

import (
	"github.com/mozaika228/codebaseagent/internal/journal"
	cbastrings "github.com/mozaika228/codebaseagent/internal/strings"
)

// Journal renders recorded request attempts.
type Journal struct {
	*Writer
}

// NewJournal creates a Journal renderer writing to w.
func NewJournal(w *Writer) *Journal {
	return &Journal{Writer: w}
}

// Entries renders attempts, newest first.
func (j *Journal) Entries(entries []journal.Entry) {
	if len(entries) == 0 {
		j.Empty("No attempts recorded")
		return
	}

	j.Header("REQUEST JOURNAL (%d attempts)", len(entries))

	counts := make(map[journal.Outcome]int)
	for _, e := range entries {
		counts[e.Outcome]++
		j.Println("%s [%s] %-8s #%d %s (%s)",
			OutcomeIcon(string(e.Outcome)),
			e.RecordedAt.Format("2006-01-02 15:04:05"),
			e.Kind,
			e.Seq,
			cbastrings.Truncate(e.Target, 50),
			FormatDuration(e.Duration),
		)
		switch e.Outcome {
		case journal.OutcomeSucceeded:
			j.Nested("%s", e.Identifier)
		case journal.OutcomeFailed:
			j.Nested("%s", cbastrings.Truncate(cbastrings.FirstLine(e.Detail), 70))
		case journal.OutcomeStale:
			j.Nested("superseded by a newer %s", e.Kind)
		}
	}

	j.Section("Outcomes")
	for _, o := range []journal.Outcome{journal.OutcomeSucceeded, journal.OutcomeFailed, journal.OutcomeStale} {
		if counts[o] > 0 {
			j.Item("%s %-9s %d", OutcomeIcon(string(o)), o, counts[o])
		}
	}
}
