// Package idgen mints issue and file identifiers and hands out monotonic
// timestamps for created_at/updated_at ordering.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// hexChars is the alphabet used for issue and file suffixes: lowercase hex.
const hexChars = "0123456789abcdef"

// randomHex returns n lowercase hex characters sourced from crypto/rand.
func randomHex(n int) (string, error) {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	s := hex.EncodeToString(buf)
	return s[:n], nil
}

// Exists is implemented by a storage layer able to answer "does this id
// already exist" for collision detection.
type Exists func(id string) (bool, error)

// NewIssueID mints an issue id of the form "<prefix>-<10 hex>", resampling
// at 16 hex characters on collision. exists may be nil, in which case no
// collision check is done.
func NewIssueID(prefix string, exists Exists) (string, error) {
	return newID(prefix, 10, exists)
}

// NewFileID mints a file id of the form "<prefix>-f-<10 hex>".
func NewFileID(prefix string, exists Exists) (string, error) {
	suffix, err := newSuffix(10, exists, func(s string) string {
		return fmt.Sprintf("%s-f-%s", prefix, s)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-f-%s", prefix, suffix), nil
}

func newID(prefix string, length int, exists Exists) (string, error) {
	suffix, err := newSuffix(length, exists, func(s string) string {
		return fmt.Sprintf("%s-%s", prefix, s)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", prefix, suffix), nil
}

// newSuffix samples a hex suffix, resampling at a longer length on
// collision, and gives up after a bounded number of attempts.
func newSuffix(length int, exists Exists, build func(string) string) (string, error) {
	lengths := []int{length, 16}
	for i, l := range lengths {
		attempts := 8
		if i == 0 {
			attempts = 1
		}
		for attempt := 0; attempt < attempts; attempt++ {
			s, err := randomHex(l)
			if err != nil {
				return "", err
			}
			if exists == nil {
				return s, nil
			}
			taken, err := exists(build(s))
			if err != nil {
				return "", fmt.Errorf("checking id collision: %w", err)
			}
			if !taken {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("exhausted id generation attempts")
}

// clock serializes timestamp minting so that two mutations committed in
// the same process never observe an identical or out-of-order timestamp.
var clock struct {
	mu   sync.Mutex
	last time.Time
}

// Now returns a monotonically increasing, millisecond-precision UTC
// timestamp suitable for created_at/updated_at/commit ordering.
func Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	t := time.Now().UTC().Truncate(time.Millisecond)
	if !t.After(clock.last) {
		t = clock.last.Add(time.Millisecond)
	}
	clock.last = t
	return t
}

// FormatISO renders a timestamp in the ISO-8601 UTC millisecond form used
// throughout the API and event log.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
