// SPDX-License-Identifier: MIT

package playlist

import (
	"encoding/json"
	"fmt"
)

type jsonChannel struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Logo  string `json:"logo"`
	Group string `json:"group"`
	TvgID string `json:"tvg_id"`
}

// ParseJSON parses a JSON array of channel objects. Objects without both
// name and url are skipped; a document that is not a valid JSON array is an
// error, never a partial result.
func ParseJSON(content string) ([]Draft, error) {
	var entries []jsonChannel
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("malformed JSON playlist: %w", err)
	}

	drafts := make([]Draft, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.URL == "" {
			continue
		}
		drafts = append(drafts, Draft{
			Name:     e.Name,
			URL:      e.URL,
			Logo:     e.Logo,
			Group:    e.Group,
			TvgID:    e.TvgID,
			Position: len(drafts),
		})
	}
	return drafts, nil
}
