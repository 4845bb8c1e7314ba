package consistency

import (
	"fmt"

	"github.com/revittco/postdesk/internal/post"
)

// Decision is what a cached view needs after an item's classification
// changed.
type Decision int

const (
	NoOp Decision = iota
	PatchInPlace
	EvictFromHere
)

func (d Decision) String() string {
	switch d {
	case NoOp:
		return "no_op"
	case PatchInPlace:
		return "patch_in_place"
	case EvictFromHere:
		return "evict_from_here"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Classify maps a view's filter and an item's old and new classification
// to a Decision.
//
// A view whose membership is unchanged can be patched: neither status nor
// binning is a sort key, so the item keeps its place. A view the item
// enters or leaves must be evicted along with the rest of its chain, since
// every later cursor may now point at the wrong neighbour.
func Classify(filter post.StatusFilter, oldC, newC post.Classification) Decision {
	before, after := filter.Matches(oldC), filter.Matches(newC)
	switch {
	case !before && !after:
		return NoOp
	case before && after:
		return PatchInPlace
	default:
		return EvictFromHere
	}
}

// BulkMode controls how unfiltered views are treated in batched passes.
type BulkMode string

const (
	// BulkPatch patches unfiltered views in batched passes like any other.
	BulkPatch BulkMode = "patch"
	// BulkEvict evicts unfiltered chains in batched passes instead of
	// patching them.
	BulkEvict BulkMode = "evict"
)

// ParseBulkMode converts a config string to a BulkMode. Empty means
// BulkPatch.
func ParseBulkMode(s string) (BulkMode, error) {
	switch BulkMode(s) {
	case "", BulkPatch:
		return BulkPatch, nil
	case BulkEvict:
		return BulkEvict, nil
	default:
		return "", fmt.Errorf("invalid bulk mode %q (must be patch or evict)", s)
	}
}

// Policy is Classify plus the bulk-mode setting.
type Policy struct {
	BulkUnfiltered BulkMode
}

// Decide classifies one view for one effect. batched is true when the
// effect is one of several applied in the same pass.
func (p Policy) Decide(filter post.StatusFilter, oldC, newC post.Classification, batched bool) Decision {
	d := Classify(filter, oldC, newC)
	if d == PatchInPlace && batched && filter == post.FilterNone && p.BulkUnfiltered == BulkEvict {
		return EvictFromHere
	}
	return d
}
