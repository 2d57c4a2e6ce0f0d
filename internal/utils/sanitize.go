package utils

import (
	"regexp"
	"strings"
)

// fence matches a single fenced block spanning the whole string:
// ```lang\n<body>\n```
var fence = regexp.MustCompile("(?s)\\A```[\\w.+#-]*[ \\t]*\\r?\\n(.*?)\\r?\\n```\\z")

// Sanitize strips a markdown code fence that wraps the entire AI response.
// Fenced snippets inside a longer explanation are left alone. The unwrap is
// repeated until nothing changes, so Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	s := strings.TrimSpace(text)
	for {
		m := fence.FindStringSubmatch(s)
		if m == nil {
			return s
		}
		s = strings.TrimSpace(m[1])
	}
}
