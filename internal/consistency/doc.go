// Package consistency keeps cached list-posts pages correct after a mutation
// changes the classification of one or more posts.
//
// Each cached page is identified by a ViewSignature (status filter, sort
// order, cursor). After a mutation the Engine takes a snapshot of every
// cached page, asks the policy what each one needs, and then either patches
// the changed item in place or evicts the page together with every page
// reachable from it through the cursor chain. Pages that are not cached are
// left alone: they are correct on their next fetch.
//
// The engine performs no I/O and is not reentrant.
package consistency
