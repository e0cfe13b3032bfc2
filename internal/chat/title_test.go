package chat

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "plain", content: "Hello there", want: "Hello there"},
		{name: "collapses whitespace", content: "  a \n\t b   c  ", want: "a b c"},
		{name: "empty falls back", content: "", want: FallbackTitle},
		{name: "whitespace only falls back", content: " \n\t ", want: FallbackTitle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveTitle(tc.content); got != tc.want {
				t.Fatalf("deriveTitle(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

func TestDeriveTitleTruncation(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := deriveTitle(long)
	if !strings.HasSuffix(got, titleEllipsis) {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	runes := []rune(got)
	if len(runes) > maxTitleRunes+len([]rune(titleEllipsis)) {
		t.Fatalf("title too long: %d runes", len(runes))
	}
}

func TestDeriveTitleMultibyteBoundary(t *testing.T) {
	long := strings.Repeat("日", 80)
	got := deriveTitle(long)
	runes := []rune(got)
	want := maxTitleRunes + len([]rune(titleEllipsis))
	if len(runes) != want {
		t.Fatalf("got %d runes, want %d", len(runes), want)
	}
	for _, r := range runes[:maxTitleRunes] {
		if r != '日' {
			t.Fatalf("unexpected rune %q in truncated title", r)
		}
	}
}

func TestDeriveTitleExactBudgetNotTruncated(t *testing.T) {
	exact := strings.Repeat("x", maxTitleRunes)
	if got := deriveTitle(exact); got != exact {
		t.Fatalf("exact-length content changed: %q", got)
	}
}
