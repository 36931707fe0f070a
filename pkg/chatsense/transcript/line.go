package transcript

import (
	"regexp"
	"strings"
)

// mediaMarker is the invisible left-to-right mark some exports put around
// lines carrying attachments. It has no meaning for parsing.
const mediaMarker = "\u200e"

// headerPattern matches "[D.M.YY, H:m:s]" at the start of a line.
var headerPattern = regexp.MustCompile(
	`^\[(0?[1-9]|[12][0-9]|3[01])\.(0?[1-9]|1[0-2])\.([0-9]{2}),\s(0?[0-9]|1[0-9]|2[0-3]):(0?[0-9]|[1-5][0-9]):(0?[0-9]|[1-5][0-9])\]`,
)

// authorPattern finds "] author:" in the header prefix (greedy up to the
// last colon of the prefix).
var authorPattern = regexp.MustCompile(`\]\s.*:`)

// Line is the classification of a single transcript line.
type Line struct {
	IsHeader bool
	Date     string // D.M.YYYY, headers only
	Time     string // H:m:s, headers only
	Author   string
	Fragment string
}

// Classify recognizes header lines and extracts their fields. Any other line
// is a continuation of the previous message and is returned as-is.
//
// The author is taken from the first three colon-separated segments of the
// line, so an author name containing a colon is cut at that colon and the
// remainder ends up in the message. This matches how the exports have always
// been read.
func Classify(line string) Line {
	line = strings.Trim(line, mediaMarker)

	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return Line{Fragment: line}
	}

	day, month, year := m[1], m[2], m[3]
	hour, minute, second := m[4], m[5], m[6]

	return Line{
		IsHeader: true,
		Date:     day + "." + month + ".20" + year,
		Time:     hour + ":" + minute + ":" + second,
		Author:   author(line),
		Fragment: message(line),
	}
}

// author extracts the author from "[date, time] author: ...".
func author(line string) string {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	prefix := strings.Join(parts, ":") + ":"

	found := authorPattern.FindString(prefix)
	if found == "" {
		return ""
	}
	return strings.TrimRight(strings.TrimLeft(found, "] "), ":")
}

// message returns everything after the third colon, left-trimmed.
func message(line string) string {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 4 {
		return ""
	}
	return strings.TrimLeft(parts[3], " \t\r\n\v\f")
}
