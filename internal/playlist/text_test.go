// SPDX-License-Identifier: MIT

package playlist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTextURLs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Draft
	}{
		{
			name: "names before urls",
			content: "CCTV-1 http://h/cctv1\n" +
				"http://h/bare\n" +
				"no url on this line\n" +
				"  Sport   https://h/sport?token=1  \n",
			want: []Draft{
				{Name: "CCTV-1", URL: "http://h/cctv1", Position: 0},
				{Name: "Channel 2", URL: "http://h/bare", Position: 1},
				{Name: "Sport", URL: "https://h/sport?token=1", Position: 2},
			},
		},
		{
			name:    "empty input",
			content: "",
			want:    nil,
		},
		{
			name:    "no urls at all",
			content: "just\nsome\ntext\n",
			want:    nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTextURLs(tc.content)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ParseTextURLs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
