package subscr

import "testing"

func TestStripTags(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"a<script>alert(1)</script>b", "ab"},
		{"<style>p{}</style><i>x</i>", "x"},
		{"line<br/>break", "linebreak"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stripTags(tc.in); got != tc.want {
			t.Errorf("stripTags(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestExcerpt(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 0, "short"},
		{"short", 5, "short"},
		{"short", 10, "short"},
		{"Hello world", 1, "…"},
		{"Hello world", 7, "Hello…"},
		{"Hello world", 8, "Hello w…"},
		{"Привет, мир", 7, "Привет…"},
		// Flag emoji is a single cluster of two code points.
		{"🇩🇪🇫🇷🇮🇹", 2, "🇩🇪…"},
		// e with combining acute accent.
		{"e\u0301e\u0301e\u0301", 2, "e\u0301…"},
	}
	for _, tc := range cases {
		if got := excerpt(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("excerpt(%q, %d): want %q, got %q", tc.in, tc.maxLen, tc.want, got)
		}
	}
}
