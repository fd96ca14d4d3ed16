// Package assets embeds the default combat vocabulary.
package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed vocabulary.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// VocabularyList returns the embedded word list, lowercased, comments skipped.
func VocabularyList() ([]string, error) {
	return readLines("vocabulary.txt")
}
