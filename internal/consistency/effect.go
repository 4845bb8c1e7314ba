package consistency

import (
	"time"

	"github.com/revittco/postdesk/internal/post"
)

// MutationEffect is the classification change one mutation made to one
// item. FullyUnknown is set when the mutation result did not say what the
// item looks like now; it makes the engine evict every cached view.
type MutationEffect struct {
	ItemID       string
	Old          post.Classification
	New          post.Classification
	FullyUnknown bool
	// UpdatedAt is merged into patched items when non-zero.
	UpdatedAt time.Time
}

// Unknown returns an effect that forces a full eviction.
func Unknown(itemID string) MutationEffect {
	return MutationEffect{ItemID: itemID, FullyUnknown: true}
}

func (e MutationEffect) patch() post.Patch {
	return post.PatchFor(e.New, e.UpdatedAt)
}
