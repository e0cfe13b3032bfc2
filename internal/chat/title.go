package chat

import "strings"

// maxTitleRunes is the fixed title budget after normalization.
const maxTitleRunes = 50

// titleEllipsis marks a truncated title.
const titleEllipsis = "…"

// FallbackTitle is used when the first user message normalizes to nothing.
const FallbackTitle = "New chat"

// normalizeContent collapses runs of whitespace to single spaces and trims.
func normalizeContent(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

// deriveTitle builds a thread title from the first user message.
func deriveTitle(content string) string {
	normalized := normalizeContent(content)
	if normalized == "" {
		return FallbackTitle
	}
	runes := []rune(normalized)
	if len(runes) <= maxTitleRunes {
		return normalized
	}
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + titleEllipsis
}

// titleUnset reports whether a thread still has no title.
func titleUnset(title *string) bool {
	return title == nil || strings.TrimSpace(*title) == ""
}
