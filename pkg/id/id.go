// Package id mints position and order identifiers. ULIDs are
// time-sortable, so the position registry and the SQLite archive both
// get chronological ordering for free.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed from crypto/rand; ulid.Monotonic keeps IDs minted within
	// the same millisecond lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current time.
func New() string {
	return NewAt(time.Now().UTC())
}

// NewAt returns a ULID string stamped with the given time. Replay runs
// use the bar clock so identifiers sort by simulated time rather than
// wall time.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t), mono)
	if err != nil {
		// only possible if entropy fails or time overflows the ULID epoch
		panic(err)
	}
	return u.String()
}
