// Package tiles builds radar tile URL templates for the map widget.
package tiles

import "fmt"

// Color schemes understood by the tile server.
const (
	SchemeOriginal       = 0
	SchemeUniversalBlue  = 1
	SchemeTITAN          = 2
	SchemeTWC            = 3
	SchemeMeteored       = 4
	SchemeNEXRADLevelIII = 5
	SchemeRainbowSELEX   = 6
	SchemeDarkSky        = 7
)

// Options are the fixed rendering parameters applied to every frame.
// The zero value is not useful; use DefaultOptions.
type Options struct {
	Size        int // tile edge in pixels, 256 or 512
	ColorScheme int
	Smooth      int // 1 blends radar cells, 0 leaves them blocky
	Brightness  int // 1 shows snow in a separate color ramp
}

// DefaultOptions matches what the dashboard page renders with.
func DefaultOptions() Options {
	return Options{
		Size:        512,
		ColorScheme: SchemeUniversalBlue,
		Smooth:      1,
		Brightness:  1,
	}
}

// URLTemplate returns the tile URL for one frame with literal {z}/{x}/{y}
// placeholders left for the map widget to substitute per visible tile.
func URLTemplate(host, path string, opts Options) string {
	return fmt.Sprintf("%s%s/%d/{z}/{x}/{y}/%d/%d_%d.png",
		host, path, opts.Size, opts.ColorScheme, opts.Smooth, opts.Brightness)
}
