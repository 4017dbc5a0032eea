// SPDX-License-Identifier: MIT

package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		content string
		want    Format
	}{
		{"m3u extension", "http://h/list.m3u", "", FormatM3U},
		{"m3u8 extension", "http://h/list.m3u8", "", FormatM3U},
		{"m3u8 with query", "http://h/list.m3u8?token=abc", "", FormatM3U},
		{"uppercase extension", "http://h/LIST.M3U", "", FormatM3U},
		{"json extension", "http://h/channels.json", "", FormatJSON},
		{"txt extension", "http://h/urls.txt", "", FormatTextURLs},
		{"header sniff wins without extension", "http://h/playlist", "#EXTM3U\n#EXTINF:-1,A\nhttp://x\n", FormatM3U},
		{"json array sniff", "", "[{\"name\":\"a\",\"url\":\"http://x\"}]", FormatJSON},
		{"json object sniff", "", "{\"name\":\"a\"}", FormatJSON},
		{"extinf without header", "", "#EXTINF:-1,A\nhttp://x\n", FormatM3U},
		{"bare url lines", "", "CCTV http://h/1\nhttp://h/2\n", FormatTextURLs},
		{"unrecognizable defaults to json", "http://h/feed", "whatever", FormatJSON},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFormat(tc.url, tc.content))
		})
	}
}

func TestParseDispatch(t *testing.T) {
	m3u, err := Parse("#EXTM3U\n#EXTINF:-1,A\nhttp://h/a\n", FormatM3U)
	require.NoError(t, err)
	require.Len(t, m3u, 1)

	jsonDrafts, err := Parse(`[{"name":"A","url":"http://h/a"}]`, FormatJSON)
	require.NoError(t, err)
	require.Len(t, jsonDrafts, 1)

	text, err := Parse("A http://h/a\n", FormatTextURLs)
	require.NoError(t, err)
	require.Len(t, text, 1)

	_, err = Parse("x", Format("xspf"))
	require.Error(t, err)
}
