package memos

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// The service derives a memo's tag set from "#hashtag" tokens in its content,
// so tag mutation is content mutation. A tag token runs from a '#' until the
// first rune that cannot continue a tag.

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '/'
}

// ContentTags scans content for hashtag tokens and returns the tag names in
// order of first appearance, without the leading '#'. Heading markers like
// "## Title" carry no tag runes and are skipped.
func ContentTags(content string) []string {
	var tags []string
	seen := make(map[string]bool)

	prev := rune(0)
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRuneInString(content[i:])
		if r == '#' && prev != '#' && !isTagRune(prev) {
			j := i + size
			for j < len(content) {
				tr, tsize := utf8.DecodeRuneInString(content[j:])
				if !isTagRune(tr) {
					break
				}
				j += tsize
			}
			if j > i+size {
				tag := content[i+size : j]
				if !seen[tag] {
					seen[tag] = true
					tags = append(tags, tag)
				}
				prev = rune(0)
				i = j
				continue
			}
		}
		prev = r
		i += size
	}

	return tags
}

// AppendTags returns content with a hashtag appended for every tag not
// already present, on a new line after the original text. Tags may be given
// with or without the leading '#'. Content is returned unchanged when nothing
// is missing.
func AppendTags(content string, tags []string) string {
	existing := make(map[string]bool)
	for _, t := range ContentTags(content) {
		existing[t] = true
	}

	var missing []string
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || existing[tag] {
			continue
		}
		existing[tag] = true
		missing = append(missing, "#"+tag)
	}

	if len(missing) == 0 {
		return content
	}

	return content + "\n" + strings.Join(missing, " ")
}

// StripTag removes the full hashtag token for tag from content, leaving
// longer tags that merely share the prefix intact ("#workshop" survives
// removing "work"). Whitespace around the removed token is tidied. Content is
// returned unchanged when the tag is not present.
func StripTag(content, tag string) string {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return content
	}
	token := "#" + tag

	var b strings.Builder
	changed := false
	prev := rune(0)
	for i := 0; i < len(content); {
		if strings.HasPrefix(content[i:], token) && prev != '#' && !isTagRune(prev) {
			end := i + len(token)
			next, _ := utf8.DecodeRuneInString(content[end:])
			if end >= len(content) || !isTagRune(next) {
				// Swallow one adjacent space so removal does not leave a
				// stray gap.
				if end < len(content) && content[end] == ' ' {
					if s := b.String(); s == "" || s[len(s)-1] == ' ' || s[len(s)-1] == '\n' {
						end++
					}
				}
				changed = true
				prev = rune(0)
				i = end
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(content[i:])
		b.WriteString(content[i : i+size])
		prev = r
		i += size
	}

	if !changed {
		return content
	}
	return strings.TrimSpace(b.String())
}
