// Package textsplit cuts long responses into post-sized chunks.
package textsplit

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength is the per-post budget used for replies. Bluesky allows 300
// characters; one is kept in reserve.
const DefaultMaxLength = 299

// Split packs the sentences of content into chunks of at most maxLength
// characters (runes), breaking only between sentences. A sentence longer than
// maxLength is truncated to maxLength and the remainder is dropped.
//
// The chunks are returned last-built first. Use Narrative to get them in the
// order they were composed.
func Split(content string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var chunks []string
	current := ""
	for _, seg := range segments(content) {
		if utf8.RuneCountInString(current+seg.text) <= maxLength {
			current += seg.text + seg.sep
			continue
		}
		if c := strings.TrimSpace(current); c != "" {
			chunks = append(chunks, c)
		}
		current = Truncate(seg.text, maxLength) + seg.sep
	}
	if c := strings.TrimSpace(current); c != "" {
		chunks = append(chunks, c)
	}
	reverse(chunks)
	return chunks
}

// Narrative returns a copy of chunks (as produced by Split) in composition order.
func Narrative(chunks []string) []string {
	out := make([]string, len(chunks))
	copy(out, chunks)
	reverse(out)
	return out
}

// Sentences splits text after every '.', '!' or '?' that is followed by
// whitespace. Surrounding whitespace is trimmed and empty sentences are skipped.
func Sentences(text string) []string {
	segs := segments(strings.TrimSpace(text))
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.text)
	}
	return out
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// segment is a sentence and the whitespace that followed it in the input.
type segment struct {
	text string
	sep  string
}

func segments(text string) []segment {
	var out []segment
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if s := string(runes[start : i+1]); strings.TrimSpace(s) != "" {
			out = append(out, segment{text: s, sep: string(runes[i+1 : j])})
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, segment{text: string(runes[start:])})
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
