package generate

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for files that are not a decodable image
var ErrUnsupportedImage = errors.New("generate: unsupported image")

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Request is one generation call
type Request struct {
	ImagePath string
	OutputDir string
	Params    Params
}

// Validate checks that the image decodes and creates the output directory
func (r Request) Validate() error {
	ext := strings.ToLower(filepath.Ext(r.ImagePath))
	if !imageExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, r.ImagePath)
	}

	f, err := os.Open(r.ImagePath)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, r.ImagePath, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("%w: %s is empty", ErrUnsupportedImage, r.ImagePath)
	}

	if r.OutputDir == "" {
		return errors.New("generate: no output directory")
	}
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("generate: create output directory: %w", err)
	}
	return nil
}
