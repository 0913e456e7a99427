package asset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Class is the coarse media type of a local file.
type Class int

const (
	Unknown Class = iota
	Image
	Video
)

func (c Class) String() string {
	switch c {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// Extensions of the image decoders linked into this package.
var imageExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"}

var videoExtensions = []string{"avi", "mpg", "mpeg"}

// Classify decides from the file extension alone whether path is an image
// or a video. Matching ignores case.
func Classify(path string) Class {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch {
	case ext == "":
		return Unknown
	case slices.Contains(imageExtensions, ext):
		return Image
	case slices.Contains(videoExtensions, ext):
		return Video
	default:
		return Unknown
	}
}

// SupportedExtensions lists every extension Classify accepts, images
// first.
func SupportedExtensions() []string {
	return slices.Concat(imageExtensions, videoExtensions)
}

// Dimensions reads the pixel size of an encoded image without decoding it.
func Dimensions(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
