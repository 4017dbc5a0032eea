// SPDX-License-Identifier: MIT

// Package playlist parses IPTV playlist documents (M3U, JSON, plain URL
// lists) into ordered channel drafts and writes M3U documents back out.
// Parsing is pure: no I/O, no storage identifiers.
package playlist

import (
	"fmt"
	"strings"
)

// Format identifies a playlist document grammar.
type Format string

const (
	FormatM3U      Format = "m3u"
	FormatJSON     Format = "json"
	FormatTextURLs Format = "text_urls"
)

// Draft is a parsed channel record not yet bound to a playlist or a persisted
// identifier. Position reflects source-document order, starting at 0.
type Draft struct {
	Name     string
	URL      string
	Logo     string
	Group    string
	TvgID    string
	Position int
}

// Parse converts playlist source text into an ordered sequence of drafts.
// Empty input yields an empty sequence. Individual malformed lines are
// skipped; only a structurally malformed JSON document is an error.
func Parse(content string, format Format) ([]Draft, error) {
	switch format {
	case FormatM3U:
		return ParseM3U(content), nil
	case FormatJSON:
		return ParseJSON(content)
	case FormatTextURLs:
		return ParseTextURLs(content), nil
	default:
		return nil, fmt.Errorf("unknown playlist format %q", format)
	}
}

// DetectFormat selects the parser format for a document. A recognized source
// URL extension wins; without one the document content is sniffed
// (#EXTM3U header, JSON array/object opener, embedded http(s) tokens), and
// JSON is the fallback for remote documents with neither.
func DetectFormat(sourceURL, content string) Format {
	lower := strings.ToLower(sourceURL)
	// Strip query string before looking at the extension.
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".m3u"), strings.HasSuffix(lower, ".m3u8"):
		return FormatM3U
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".txt"):
		return FormatTextURLs
	}

	trimmed := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(trimmed, "#EXTM3U"):
		return FormatM3U
	case strings.HasPrefix(trimmed, "["), strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case strings.Contains(trimmed, "#EXTINF:"):
		return FormatM3U
	case urlPattern.MatchString(trimmed):
		return FormatTextURLs
	}
	return FormatJSON
}
