// SPDX-License-Identifier: MIT

package playlist

import (
	"fmt"
	"strings"
)

// pending holds metadata from the most recent #EXTINF directive until its
// URL line arrives. An #EXTINF with no following URL is silently dropped.
type pending struct {
	name  string
	logo  string
	group string
	tvgID string
	set   bool
}

// ParseM3U parses extended M3U content. Lines it does not understand are
// skipped, never fatal.
func ParseM3U(content string) []Draft {
	var drafts []Draft
	var cur pending

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "" || strings.HasPrefix(line, "#EXTM3U"):
			// header / blank
		case strings.HasPrefix(line, "#EXTINF:"):
			cur = parseExtInf(line)
		case isStreamURL(line):
			d := Draft{URL: line, Position: len(drafts)}
			if cur.set {
				d.Name = cur.name
				d.Logo = cur.logo
				d.Group = cur.group
				d.TvgID = cur.tvgID
			} else {
				// Bare URL line: keep it rather than dropping the entry.
				d.Name = fmt.Sprintf("Channel %d", len(drafts)+1)
			}
			drafts = append(drafts, d)
			cur = pending{}
		}
	}
	return drafts
}

// parseExtInf extracts the display name and tvg attributes from an #EXTINF
// directive. The display name is the text after the last comma; when the
// directive has no trailing segment the text before the first comma is used.
func parseExtInf(line string) pending {
	p := pending{set: true}

	info := strings.TrimPrefix(line, "#EXTINF:")
	if idx := strings.LastIndex(info, ","); idx >= 0 && idx+1 < len(info) {
		p.name = strings.TrimSpace(info[idx+1:])
	} else if idx := strings.Index(info, ","); idx >= 0 {
		p.name = strings.TrimSpace(info[:idx])
	}

	p.logo = attrValue(line, "tvg-logo")
	p.group = attrValue(line, "group-title")
	p.tvgID = attrValue(line, "tvg-id")
	if p.name == "" {
		p.name = attrValue(line, "tvg-name")
	}
	return p
}

// attrValue returns the double-quoted value following `key=` in an EXTINF
// directive, or "" when the attribute is absent or unterminated.
func attrValue(line, key string) string {
	marker := key + `="`
	idx := strings.Index(line, marker)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func isStreamURL(line string) bool {
	return strings.HasPrefix(line, "http://") ||
		strings.HasPrefix(line, "https://") ||
		strings.HasPrefix(line, "rtmp://")
}
