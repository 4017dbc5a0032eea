// SPDX-License-Identifier: MIT

package playlist

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// Item is a channel view for M3U export.
type Item struct {
	Name  string
	TvgID string
	Logo  string
	Group string
	URL   string
}

// WriteM3U writes items as an extended M3U document.
func WriteM3U(w io.Writer, items []Item) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		buf.WriteString(fmt.Sprintf(
			`#EXTINF:-1 tvg-id="%s" tvg-logo="%s" group-title="%s",%s`+"\n",
			it.TvgID, it.Logo, it.Group, it.Name,
		))
		buf.WriteString(it.URL + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}

// ExportFile atomically writes items as M3U to path. Readers observe either
// the previous file or the complete new one, never a partial write.
func ExportFile(path string, items []Item) error {
	buf := &bytes.Buffer{}
	if err := WriteM3U(buf, items); err != nil {
		return err
	}
	return renameio.WriteFile(path, buf.Bytes(), 0o644)
}
