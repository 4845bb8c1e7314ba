package blog

import (
	"time"

	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/post"
)

// Outcome classifies how a mutation resolved.
type Outcome int

const (
	// Success means every item was written and its new classification is
	// known.
	Success Outcome = iota + 1
	// PartialSuccess means some writes failed; the resulting state of the
	// collection is not known.
	PartialSuccess
	// Invalid means the request was rejected and nothing was written.
	Invalid
	// Unchanged means the items already had the requested classification.
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case PartialSuccess:
		return "PARTIAL_SUCCESS"
	case Invalid:
		return "VALIDATION_ERROR"
	case Unchanged:
		return "UNCHANGED"
	default:
		return "UNKNOWN"
	}
}

// MutationResult is what a mutation returns to its caller.
type MutationResult struct {
	Outcome Outcome
	// Post is the written post of a single-item mutation. Nil after a
	// delete.
	Post *post.Post
	// Posts are the posts a bulk mutation wrote.
	Posts   []post.Post
	Warning string
	// Report describes the cache repair the mutation triggered. Zero when
	// the outcome did not reach the cache.
	Report consistency.Report
}

// change is one item's classification before and after a write.
type change struct {
	id       string
	old, new post.Classification
	at       time.Time
}

// effectsFor maps a resolved mutation to the effects handed to the
// consistency engine. Invalid and Unchanged outcomes produce none; a
// partial success makes every effect unknown.
func effectsFor(o Outcome, changes []change, failed []string) []consistency.MutationEffect {
	switch o {
	case Success:
		out := make([]consistency.MutationEffect, 0, len(changes))
		for _, c := range changes {
			out = append(out, consistency.MutationEffect{
				ItemID:    c.id,
				Old:       c.old,
				New:       c.new,
				UpdatedAt: c.at,
			})
		}
		return out
	case PartialSuccess:
		out := make([]consistency.MutationEffect, 0, len(changes)+len(failed))
		for _, c := range changes {
			out = append(out, consistency.Unknown(c.id))
		}
		for _, id := range failed {
			out = append(out, consistency.Unknown(id))
		}
		return out
	default:
		return nil
	}
}
