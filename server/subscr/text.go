package subscr

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// stripTags converts HTML to plain text: tags are dropped, entities decoded,
// content of <script> and <style> elements is skipped.
func stripTags(src string) string {
	if !strings.ContainsAny(src, "<&") {
		return src
	}

	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(src))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input.
			return out.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				out.Write(z.Text())
			}
		}
	}
}

// Appended to truncated excerpts.
const ellipsis = "…"

// excerpt shortens the text to at most maxLen grapheme clusters, ellipsis included.
// Clusters are never split, so combining marks and emoji sequences stay intact.
func excerpt(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}

	// Byte offset of the end of each cluster, up to maxLen clusters.
	ends := make([]int, 0, maxLen)
	offset := 0
	for state, remaining, cluster := -1, text, ""; len(remaining) > 0; {
		if len(ends) == maxLen {
			// The text is longer than the limit.
			cut := 0
			if maxLen > 1 {
				cut = ends[maxLen-2]
			}
			return strings.TrimRight(text[:cut], " \t\r\n") + ellipsis
		}
		cluster, remaining, _, state = uniseg.StepString(remaining, state)
		offset += len(cluster)
		ends = append(ends, offset)
	}
	return text
}
