// Package export saves rendered frames: PNG and SVG files for reporting,
// and an inline data URL for embedding a frame without touching disk.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marketgraph/cascadeviz/pkg/render"
)

// Save renders the frame to path, inferring the format from the extension.
// An unknown or missing extension defaults to SVG, matching the cheaper
// pipeline.
func Save(ctx *render.Context, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return SavePNG(ctx, path)
	case ".svg":
		return SaveSVG(ctx, path)
	case "":
		return SaveSVG(ctx, path+".svg")
	default:
		return fmt.Errorf("unsupported format %q (want .png or .svg)", filepath.Ext(path))
	}
}

// SavePNG rasterizes the frame and writes it to path.
func SavePNG(ctx *render.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.EncodePNG(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// SaveSVG writes the vector frame to path.
func SaveSVG(ctx *render.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WriteSVG(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("write svg: %w", err)
	}
	return f.Close()
}

// DataURL renders the frame as a base64 image/png data URL, the same shape
// a canvas toDataURL download produces.
func DataURL(ctx *render.Context) (string, error) {
	var buf bytes.Buffer
	if err := render.EncodePNG(ctx, &buf); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
