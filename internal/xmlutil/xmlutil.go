// Package xmlutil provides string-level XML helpers shared by the MEDLINE
// and JATS parsers: tag-based extraction, attribute reads, inline-markup
// stripping, and entity decoding. No DOM is materialized; JATS documents in
// the wild carry tolerated malformations that break strict deserializers.
package xmlutil

import (
	"regexp"
	"strconv"
	"strings"

	strip "github.com/grokify/html-strip-tags-go"
)

// inlineMarkup matches the closed set of HTML-like formatting tags that
// appear inside AbstractText and ArticleTitle elements. Only the tags are
// removed; their text content is preserved.
var inlineMarkup = regexp.MustCompile(`(?i)</?(?:i|b|u|sup|sub|em|strong|italic|bold)(?:\s[^>]*)?/?>`)

// StripInlineMarkup removes inline formatting tags from a document so that
// strict XML deserialization sees plain character data.
func StripInlineMarkup(s string) string {
	return inlineMarkup.ReplaceAllString(s, "")
}

// StripTags removes every remaining tag from a fragment and decodes
// entities, collapsing the result to trimmed text.
func StripTags(s string) string {
	return strings.TrimSpace(DecodeEntities(strip.StripTags(s)))
}

var numericEntity = regexp.MustCompile(`&#(x?[0-9a-fA-F]+);`)

var namedEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// DecodeEntities decodes the XML named entities plus decimal and hex
// character references. Applied to extracted text, never to raw documents.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	s = numericEntity.ReplaceAllStringFunc(s, func(m string) string {
		ref := m[2 : len(m)-1]
		base := 10
		if ref[0] == 'x' || ref[0] == 'X' {
			ref = ref[1:]
			base = 16
		}
		n, err := strconv.ParseInt(ref, base, 32)
		if err != nil || n <= 0 {
			return m
		}
		return string(rune(n))
	})
	return namedEntities.Replace(s)
}

// boundary reports whether c can follow a tag name inside an open tag.
func boundary(c byte) bool {
	return c == ' ' || c == '>' || c == '/' || c == '\t' || c == '\n' || c == '\r'
}

// indexOpenTag finds the next occurrence of "<tag" at or after from that is
// a genuine open (or self-closing) tag, not a prefix of a longer name.
func indexOpenTag(doc, tag string, from int) int {
	needle := "<" + tag
	for i := from; i < len(doc); {
		idx := strings.Index(doc[i:], needle)
		if idx < 0 {
			return -1
		}
		idx += i
		after := idx + len(needle)
		if after < len(doc) && boundary(doc[after]) {
			return idx
		}
		i = idx + 1
	}
	return -1
}

// FindTagBlocks returns each <tag>...</tag> block (tags included) in
// document order. Nested occurrences of the same tag are tracked by a depth
// counter, so an outer block contains its nested blocks and the scan resumes
// after the outer close. Self-closing forms are returned as-is.
func FindTagBlocks(doc, tag string) []string {
	var blocks []string
	closeTag := "</" + tag + ">"
	i := 0
	for {
		start := indexOpenTag(doc, tag, i)
		if start < 0 {
			return blocks
		}
		gt := strings.IndexByte(doc[start:], '>')
		if gt < 0 {
			return blocks
		}
		gt += start
		if doc[gt-1] == '/' {
			blocks = append(blocks, doc[start:gt+1])
			i = gt + 1
			continue
		}

		depth := 1
		j := gt + 1
		end := -1
		for depth > 0 {
			nextOpen := indexOpenTag(doc, tag, j)
			nextClose := strings.Index(doc[j:], closeTag)
			if nextClose < 0 {
				break
			}
			nextClose += j
			if nextOpen >= 0 && nextOpen < nextClose {
				og := strings.IndexByte(doc[nextOpen:], '>')
				if og < 0 {
					break
				}
				og += nextOpen
				if doc[og-1] != '/' {
					depth++
				}
				j = og + 1
				continue
			}
			depth--
			j = nextClose + len(closeTag)
			if depth == 0 {
				end = j
			}
		}
		if end < 0 {
			return blocks
		}
		blocks = append(blocks, doc[start:end])
		i = end
	}
}

// InnerContent strips the outer open and close tags from a block returned
// by FindTagBlocks. Self-closing blocks yield "".
func InnerContent(block, tag string) string {
	gt := strings.IndexByte(block, '>')
	if gt < 0 {
		return ""
	}
	if block[gt-1] == '/' {
		return ""
	}
	closeTag := "</" + tag + ">"
	if !strings.HasSuffix(block, closeTag) {
		return ""
	}
	return block[gt+1 : len(block)-len(closeTag)]
}

// ExtractTag returns the entity-decoded inner text of the first <tag>
// occurrence, with child tags stripped. The second return reports presence.
func ExtractTag(doc, tag string) (string, bool) {
	blocks := FindTagBlocks(doc, tag)
	if len(blocks) == 0 {
		return "", false
	}
	return StripTags(InnerContent(blocks[0], tag)), true
}

// ExtractAll returns the stripped inner text of every <tag> occurrence in
// document order, skipping empty bodies.
func ExtractAll(doc, tag string) []string {
	var out []string
	for _, b := range FindTagBlocks(doc, tag) {
		if text := StripTags(InnerContent(b, tag)); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Attr reads an attribute value from the first tag of a block. Both single
// and double quoted forms are accepted.
func Attr(block, name string) string {
	gt := strings.IndexByte(block, '>')
	if gt < 0 {
		gt = len(block)
	}
	head := block[:gt]
	for _, q := range []string{`"`, `'`} {
		needle := name + "=" + q
		idx := strings.Index(head, needle)
		if idx < 0 {
			continue
		}
		rest := head[idx+len(needle):]
		end := strings.Index(rest, q)
		if end < 0 {
			continue
		}
		return rest[:end]
	}
	return ""
}

// FindTagBlockWithAttr returns the first <tag> block whose attribute name
// has the given value.
func FindTagBlockWithAttr(doc, tag, name, value string) (string, bool) {
	for _, b := range FindTagBlocks(doc, tag) {
		if Attr(b, name) == value {
			return b, true
		}
	}
	return "", false
}

// CollapseWhitespace folds runs of whitespace into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
