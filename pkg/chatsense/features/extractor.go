package features

import (
	"regexp"
	"strings"

	"github.com/cognicore/chatsense/pkg/chatsense/stoplist"
)

// trimChars are stripped from both ends of every token.
const trimChars = `'"?,.`

// wordPattern accepts tokens that start with a letter followed by letters or digits.
var wordPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)

// Extractor turns normalized text into a bag-of-words feature vector.
type Extractor struct {
	stops *stoplist.Manager
}

// NewExtractor creates an extractor. A nil manager yields one holding only
// the synthetic stop words.
func NewExtractor(stops *stoplist.Manager) *Extractor {
	if stops == nil {
		stops = stoplist.NewManager(nil)
	}
	return &Extractor{stops: stops}
}

// Vector splits text on whitespace and keeps the tokens that survive
// cleaning and stop-word filtering, lower-cased, in order of appearance.
func (e *Extractor) Vector(text string) []string {
	var vector []string
	for _, word := range strings.Fields(text) {
		word = CollapseRepeats(word)
		word = strings.Trim(word, trimChars)

		if e.stops.IsStop(word) || !wordPattern.MatchString(word) {
			continue
		}
		vector = append(vector, strings.ToLower(word))
	}
	return vector
}

// CollapseRepeats shortens every run of two or more identical characters to
// exactly two ("soooo" -> "soo").
func CollapseRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
