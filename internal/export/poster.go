package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"sync"
	"time"
)

const posterTimeout = 30 * time.Second

// Posters extracts and caches the first frame of video assets with
// ffmpeg. The poster of a video is stored next to it.
type Posters struct {
	ffmpegPath string
	resolve    func(source string) string // source -> path on disk

	mu sync.Mutex // one extraction at a time
}

func NewPosters(ffmpegPath string, resolve func(source string) string) *Posters {
	return &Posters{ffmpegPath: ffmpegPath, resolve: resolve}
}

// Load returns the poster of the video source, extracting it on first
// use.
func (p *Posters) Load(source string) (image.Image, error) {
	video := p.resolve(source)
	poster := video + ".poster.png"

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(poster); err != nil {
		if _, err := os.Stat(video); err != nil {
			return nil, fmt.Errorf("poster %s: %w", source, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), posterTimeout)
		defer cancel()
		if err := runFfmpeg(ctx, p.ffmpegPath,
			"-i", video,
			"-frames:v", "1",
			"-f", "image2",
			poster,
		); err != nil {
			os.Remove(poster)
			return nil, fmt.Errorf("poster %s: %w", source, err)
		}
	}
	return decodeFile(poster)
}

func runFfmpeg(ctx context.Context, ffmpegPath string, args ...string) error {
	// Prepend -y to overwrite output without prompting
	fullArgs := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, ffmpegPath, fullArgs...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v: %s", err, stderr.String())
	}
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
