// Package ids generates client-side identifiers.
package ids

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"arena-sync/internal/model"
)

var (
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyMu sync.Mutex
)

// New returns a lexically sortable unique id.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Temp returns an id for an optimistic entry that the server has not confirmed yet.
func Temp() string {
	return model.TempIDPrefix + New()
}

// IsTemp reports whether id was produced by Temp.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, model.TempIDPrefix)
}

// DirectRoom returns the id of the direct chat room between two users.
// The id does not depend on argument order.
func DirectRoom(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "dr-" + a + "-" + b
}
