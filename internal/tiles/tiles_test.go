package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLTemplate(t *testing.T) {
	tests := []struct {
		name string
		host string
		path string
		opts Options
		want string
	}{
		{
			name: "defaults",
			host: "https://tilecache.rainviewer.com",
			path: "/v2/radar/1700000000",
			opts: DefaultOptions(),
			want: "https://tilecache.rainviewer.com/v2/radar/1700000000/512/{z}/{x}/{y}/1/1_1.png",
		},
		{
			name: "small blocky tiles",
			host: "https://tilecache.rainviewer.com",
			path: "/v2/radar/nowcast_abc",
			opts: Options{Size: 256, ColorScheme: SchemeTITAN, Smooth: 0, Brightness: 0},
			want: "https://tilecache.rainviewer.com/v2/radar/nowcast_abc/256/{z}/{x}/{y}/2/0_0.png",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, URLTemplate(tc.host, tc.path, tc.opts))
		})
	}
}

func TestURLTemplateKeepsPlaceholders(t *testing.T) {
	got := URLTemplate("https://h", "/p", DefaultOptions())
	assert.Contains(t, got, "{z}/{x}/{y}", "map widget placeholders must survive formatting")
}
