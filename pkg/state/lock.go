package state

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Acquire takes an advisory lock next to the state file. Exactly one verifier
// process may own a state file at a time; a second produce or consume against
// the same path fails fast instead of racing the persist. The caller unlocks
// when its phase completes.
func Acquire(path string) (*flock.Flock, error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state file %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("state file %s is in use by another verifier process", path)
	}
	return fl, nil
}
