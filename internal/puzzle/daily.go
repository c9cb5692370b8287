// internal/puzzle/daily.go
//
// Deterministic daily puzzle selection: HMAC(salt, YYYY-MM-DD) modulo the
// set size. Every server instance with the same salt and puzzle set picks
// the same puzzle for a given day.

package puzzle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailyIndex returns a deterministic index into a set of n puzzles for a date.
func DailyIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for modulus distribution
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Daily returns the puzzle of the day from the loaded set.
func Daily(date time.Time, salt string) *Puzzle {
	if len(loaded) == 0 {
		return nil
	}
	return loaded[DailyIndex(date, salt, len(loaded))]
}
