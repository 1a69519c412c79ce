package words

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"time"
)

// Daily returns the start screen's word of the day and its UTC date key.
// Everyone sharing salt sees the same word until UTC midnight.
func Daily(now time.Time, salt string) (word, date string) {
	date = now.UTC().Format(time.DateOnly)
	mu.RLock()
	defer mu.RUnlock()
	if len(list) == 0 {
		return Fallback, date
	}
	return list[pick(salt, date, len(list))], date
}

// pick maps (salt, date) onto [0, n) through HMAC-SHA256.
func pick(salt, date string, n int) int {
	mac := hmac.New(sha256.New, []byte(salt))
	_, _ = io.WriteString(mac, date)
	return int(binary.BigEndian.Uint64(mac.Sum(nil)) % uint64(n))
}
