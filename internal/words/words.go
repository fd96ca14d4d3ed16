// internal/words/words.go
//
// Provides the combat vocabulary for the game engine.
//
// Responsibilities:
//   - Load the vocabulary from a configured file or fall back to the embedded list.
//   - Keep a set for quick lookups and a slice for uniform random draws.
//   - Supply utility functions like Vocabulary, Random, Contains and Stats.
//
// Initialization behavior (Init):
//   1. If a path is given (WORDS_FILE in config), load one word per line from that file.
//   2. Otherwise use the list embedded in the assets package.
//
// Constraints:
//   • Words are 1–24 characters of a–z or 0–9.
//   • Lists are normalized to lowercase and de-duplicated (first occurrence wins).
//   • Initialization is run once (sync.Once).

package words

import (
	"bufio"
	"errors"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/monadtype/assets"
)

const maxWordLen = 24

var (
	initOnce   sync.Once
	vocabulary []string            // draw order, de-duplicated
	vocabSet   map[string]struct{} // lookup
	initialErr error
)

// Init loads the vocabulary exactly once, from path when it is non-empty.
// Returns an error if the list ends up empty.
func Init(path string) error {
	initOnce.Do(func() {
		list, err := load(path)
		if err != nil {
			initialErr = err
			return
		}
		vocabulary = list
		vocabSet = toSet(list)
	})
	return initialErr
}

func load(path string) ([]string, error) {
	var list []string
	if path != "" {
		var err error
		if list, err = ReadFile(path); err != nil {
			return nil, err
		}
	} else {
		raw, err := assets.VocabularyList()
		if err != nil {
			return nil, err
		}
		list = Normalize(raw)
	}
	if len(list) == 0 {
		return nil, errors.New("words: vocabulary is empty")
	}
	return list, nil
}

// ReadFile loads one word per line from a file and normalizes it.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var raw []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

// Normalize lowercases, trims and de-duplicates a word list, dropping invalid entries.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToLower(strings.TrimSpace(w))
		if !Valid(w) {
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

// Valid reports whether w can be used as an enemy word.
func Valid(w string) bool {
	if len(w) == 0 || len(w) > maxWordLen {
		return false
	}
	for _, r := range w {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// Vocabulary returns the loaded word list. Callers must not modify it.
func Vocabulary() []string {
	return vocabulary
}

// Random draws a word uniformly from the vocabulary using r.
// Falls back to "monad" when nothing is loaded.
func Random(r *rand.Rand) string {
	if len(vocabulary) == 0 {
		return "monad"
	}
	return vocabulary[r.Intn(len(vocabulary))]
}

// Contains reports whether w is in the vocabulary.
func Contains(w string) bool {
	_, ok := vocabSet[strings.ToLower(w)]
	return ok
}

// Stats returns the number of loaded words.
func Stats() int {
	return len(vocabulary)
}
