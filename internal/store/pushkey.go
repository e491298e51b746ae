package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	keyMu      sync.Mutex
	keyEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newPushKey generates a child key that is unique and lexicographically
// ordered by generation time, which keeps key order equal to creation order
// the way the remote store's push ids do.
func newPushKey() string {
	keyMu.Lock()
	defer keyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), keyEntropy).String()
}
