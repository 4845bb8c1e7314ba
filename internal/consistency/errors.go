package consistency

import (
	"errors"
	"fmt"
)

// ErrCacheIntegrity matches every CacheIntegrityError through errors.Is.
var ErrCacheIntegrity = errors.New("cache integrity")

// CacheIntegrityError reports cache state that cannot occur without a bug:
// a cursor chain that loops back on itself, or a stored entry whose
// arguments no longer canonicalize the way they did before.
type CacheIntegrityError struct {
	Reason    string
	Signature ViewSignature
	Err       error
}

func (e *CacheIntegrityError) Error() string {
	msg := fmt.Sprintf("cache integrity: %s at %s", e.Reason, e.Signature)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CacheIntegrityError) Is(target error) bool {
	return target == ErrCacheIntegrity
}

func (e *CacheIntegrityError) Unwrap() error {
	return e.Err
}
