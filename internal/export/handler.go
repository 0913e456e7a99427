// Package export renders session canvases to PNG on the server.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/presemt/presemt/backend-go/internal/auth"
	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/render"
	"github.com/presemt/presemt/backend-go/internal/session"
	"github.com/presemt/presemt/backend-go/internal/typeset"
)

const maxSide = 4096

// Canvas runs fn against the engine of a live session.
type Canvas interface {
	Do(ctx context.Context, sessionID string, fn func(*engine.Engine)) error
}

type Access interface {
	Authorize(claims *auth.Claims, sessionID string) (*session.Session, error)
}

type Handler struct {
	canvas  Canvas
	access  Access
	resolve func(source string) string
	posters *Posters

	mu   sync.Mutex // guards text
	text *typeset.Measurer
}

// NewHandler creates the export handler. resolve maps an asset source to
// its file; ffmpegPath extracts video posters.
func NewHandler(canvas Canvas, access Access, resolve func(source string) string, ffmpegPath string) (*Handler, error) {
	text, err := typeset.New()
	if err != nil {
		return nil, err
	}
	return &Handler{
		canvas:  canvas,
		access:  access,
		resolve: resolve,
		posters: NewPosters(ffmpegPath, resolve),
		text:    text,
	}, nil
}

// Snapshot handles GET /export/{sessionId}.png: the session's canvas as
// its participants currently see it. width and height default to the
// engine's viewport; download=1 asks the browser to save the file.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	sess, err := h.access.Authorize(auth.ClaimsFromContext(r.Context()), sessionID)
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, session.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	width, errW := dimension(r, "width")
	height, errH := dimension(r, "height")
	if errW != nil || errH != nil {
		http.Error(w, "width and height must be between 1 and "+strconv.Itoa(maxSide), http.StatusBadRequest)
		return
	}

	var (
		cmds []engine.DrawCommand
		size plane.Size
	)
	err = h.canvas.Do(r.Context(), sessionID, func(e *engine.Engine) {
		size = e.ViewportSize()
		if width > 0 {
			size.Width = float64(width)
		}
		if height > 0 {
			size.Height = float64(height)
		}
		cmds = engine.CompileDrawCommands(e.Plane(), e.Lasso(), size)
	})
	if err != nil {
		slog.Error("snapshot session", "session", sessionID, "error", err)
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := h.render(&buf, cmds, size); err != nil {
		slog.Error("encode snapshot", "session", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, filename(sess.Name)))
	}
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())

	slog.Info("snapshot exported", "session", sessionID, "commands", len(cmds), "size", buf.Len())
}

func (h *Handler) render(buf *bytes.Buffer, cmds []engine.DrawCommand, size plane.Size) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := render.New(h.text, render.Options{
		Width:   int(size.Width),
		Height:  int(size.Height),
		Images:  func(source string) (image.Image, error) { return decodeFile(h.resolve(source)) },
		Posters: h.posters.Load,
	})
	return r.WritePNG(buf, cmds)
}

func dimension(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > maxSide {
		return 0, fmt.Errorf("%s %d out of range", key, n)
	}
	return n, nil
}

// filename keeps letters, digits, dashes and underscores.
func filename(name string) string {
	if name == "" {
		return "canvas"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
