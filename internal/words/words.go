// internal/words/words.go
//
// Word list management for the spelling game.
//
// Responsibilities:
//   - Load the word list from WORDS_FILE or fall back to the embedded default.
//   - Pick a random word, or the next word distinct from the current one.
//   - Normalize the word carried in a route segment.
//
// Constraints:
//   • Words are alphabetic a–z, lowercased, 2–12 letters.
//   • Initialization is run once (sync.Once).

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/letterpop/assets"
)

// Fallback is used when a route carries no usable word.
const Fallback = "apple"

const (
	minLen = 2
	maxLen = 12
)

var (
	initOnce   sync.Once
	mu         sync.RWMutex
	list       []string
	set        map[string]struct{}
	initialErr error
)

// Init loads the word list exactly once.
// Returns an error if the list ends up empty.
func Init() error {
	initOnce.Do(func() {
		var loaded []string
		var err error
		if path := os.Getenv("WORDS_FILE"); path != "" {
			loaded, err = readWordFile(path)
		} else {
			var raw []string
			raw, err = assets.WordList()
			loaded = filterWords(raw)
		}
		if err != nil {
			initialErr = err
			return
		}
		if len(loaded) == 0 {
			initialErr = errors.New("words: word list is empty")
			return
		}
		Set(loaded)
	})
	return initialErr
}

// Set replaces the active word list. Invalid entries are dropped.
func Set(ws []string) {
	clean := filterWords(ws)
	mu.Lock()
	defer mu.Unlock()
	list = clean
	set = make(map[string]struct{}, len(clean))
	for _, w := range clean {
		set[w] = struct{}{}
	}
}

// List returns a copy of the active word list.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), list...)
}

// Contains reports whether w is in the active list.
func Contains(w string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := set[strings.ToLower(w)]
	return ok
}

// Random returns a cryptographically random word, or Fallback when no list is loaded.
func Random() string {
	mu.RLock()
	defer mu.RUnlock()
	if len(list) == 0 {
		return Fallback
	}
	return list[randIndex(len(list))]
}

// Next returns a random word other than current. With a single-word list the
// only word is returned.
func Next(current string) string {
	current = strings.ToLower(current)
	mu.RLock()
	defer mu.RUnlock()
	var others []string
	for _, w := range list {
		if w != current {
			others = append(others, w)
		}
	}
	if len(others) == 0 {
		if len(list) > 0 {
			return list[0]
		}
		return Fallback
	}
	return others[randIndex(len(others))]
}

// Normalize turns a route segment into a playable word: trimmed, lowercased,
// non-letters dropped. An empty result falls back to Fallback.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	w := b.String()
	if w == "" || len(w) > maxLen {
		return Fallback
	}
	return w
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return filterWords(out), nil
}

// filterWords lowercases, trims, dedupes and keeps only valid words.
func filterWords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(strings.ToLower(w))
		if len(w) < minLen || len(w) > maxLen || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func randIndex(n int) int {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}
