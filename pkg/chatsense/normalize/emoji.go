package normalize

import (
	"regexp"
	"strings"

	"github.com/cognicore/chatsense/pkg/chatsense/rules"
)

var emojiPattern = regexp.MustCompile(rules.EmojiPattern)

// EmojiResult holds text with emoji removed and the removed runs in order.
// A run of adjacent emoji code points is a single entry.
type EmojiResult struct {
	Text   string
	Emojis []string
}

// EmojiSpan is an emoji run together with its byte offset in the source text.
type EmojiSpan struct {
	Offset int
	Run    string
}

// ExtractEmoji strips emoji runs from text and returns them separately.
func ExtractEmoji(text string) EmojiResult {
	emojis := emojiPattern.FindAllString(text, -1)
	if emojis == nil {
		emojis = []string{}
	}
	return EmojiResult{
		Text:   emojiPattern.ReplaceAllString(text, ""),
		Emojis: emojis,
	}
}

// ExtractEmojiPositions is ExtractEmoji keeping the offset of each run, so
// that ReinsertEmoji can rebuild the original text.
func ExtractEmojiPositions(text string) (string, []EmojiSpan) {
	locs := emojiPattern.FindAllStringIndex(text, -1)
	spans := make([]EmojiSpan, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, EmojiSpan{Offset: loc[0], Run: text[loc[0]:loc[1]]})
	}
	return emojiPattern.ReplaceAllString(text, ""), spans
}

// ReinsertEmoji puts spans back into stripped text at their original offsets.
// Spans must be in ascending offset order, as returned by ExtractEmojiPositions.
func ReinsertEmoji(stripped string, spans []EmojiSpan) string {
	var b strings.Builder
	b.Grow(len(stripped))

	pos := 0 // position in stripped
	out := 0 // length written so far, in original coordinates
	for _, s := range spans {
		n := s.Offset - out
		if n < 0 {
			n = 0
		}
		if pos+n > len(stripped) {
			n = len(stripped) - pos
		}
		b.WriteString(stripped[pos : pos+n])
		pos += n
		b.WriteString(s.Run)
		out = s.Offset + len(s.Run)
	}
	b.WriteString(stripped[pos:])
	return b.String()
}
