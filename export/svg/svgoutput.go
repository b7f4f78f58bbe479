package svg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OutOfBedlam/trendline/chart"
)

// SVGOutput writes charts as standalone .svg files under DstDir.
type SVGOutput struct {
	DstDir string
	Canvas *Canvas
}

// Export writes ch to DstDir/<name>.svg and returns the file path.
func (s *SVGOutput) Export(name string, ch *chart.Chart) (string, error) {
	dstFile := filepath.Join(s.DstDir, fmt.Sprintf("%s.svg", FileName(name)))
	return dstFile, s.WriteFile(dstFile, ch)
}

func (s *SVGOutput) WriteFile(dstFile string, ch *chart.Chart) error {
	out, err := os.OpenFile(dstFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	canvas := s.Canvas
	if canvas == nil {
		canvas = NewCanvas()
	}
	c := *canvas
	c.XMLHeader = true
	if err := c.Export(out, ch); err != nil {
		out.Close()
		return fmt.Errorf("failed to generate SVG: %w", err)
	}
	return out.Close()
}

// FileName replaces characters that are unsafe in file names.
func FileName(name string) string {
	return strings.NewReplacer(":", "_", "/", "_", "\\", "_", " ", "_").Replace(name)
}
