// AngelaMos | 2026
// wordlist.go

package token

import (
	_ "embed"
	"math/rand/v2"
	"strings"
)

//go:embed wordlist.txt
var wordlistRaw string

var wordlist = loadWordlist()

func loadWordlist() []string {
	lines := strings.Split(strings.TrimSpace(wordlistRaw), "\n")
	words := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			words = append(words, line)
		}
	}
	return words
}

// GenerateName builds a readable token name such as "DoubleWizardSky":
// wordCount words drawn uniformly with replacement, title-cased and
// concatenated. Collisions against existing names are the caller's
// problem; the store retries.
func GenerateName(wordCount int) string {
	if wordCount < 1 {
		wordCount = defaultWordCount
	}

	var b strings.Builder
	for range wordCount {
		//nolint:gosec // G404: names are identifiers, unpredictability comes from the word space
		word := wordlist[rand.IntN(len(wordlist))]
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

const defaultWordCount = 3
