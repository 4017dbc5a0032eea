// SPDX-License-Identifier: MIT

package playlist

import (
	"fmt"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ParseTextURLs scans each line for the first embedded http(s) URL. Leading
// text on the same line becomes the channel name; lines with no URL are
// skipped.
func ParseTextURLs(content string) []Draft {
	var drafts []Draft
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		loc := urlPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		url := line[loc[0]:loc[1]]
		name := strings.TrimSpace(line[:loc[0]])
		if name == "" {
			name = fmt.Sprintf("Channel %d", len(drafts)+1)
		}
		drafts = append(drafts, Draft{
			Name:     name,
			URL:      url,
			Position: len(drafts),
		})
	}
	return drafts
}
