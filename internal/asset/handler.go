package asset

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/presemt/presemt/backend-go/internal/typeid"
)

const maxUploadSize = 64 << 20 // 64MB, videos included

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir string // directory to store asset files
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Dir is where uploaded files are stored.
func (h *Handler) Dir() string { return h.dir }

// Path resolves an asset URL or file name to its location on disk.
func (h *Handler) Path(source string) string {
	return filepath.Join(h.dir, filepath.Base(strings.TrimPrefix(source, "/assets/")))
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// Images are re-encoded as PNG; videos are stored as sent.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 64MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	assetID := typeid.NewAssetID()
	resp := UploadResponse{ID: assetID, Name: header.Filename}

	switch class := Classify(header.Filename); class {
	case Image:
		img, _, err := image.Decode(file)
		if err != nil {
			http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
			return
		}
		filename := assetID + ".png"
		if err := h.savePNG(filename, img); err != nil {
			slog.Error("save image asset", "error", err, "id", assetID)
			http.Error(w, "failed to save file", http.StatusInternalServerError)
			return
		}
		resp.URL = "/assets/" + filename
		resp.Width = img.Bounds().Dx()
		resp.Height = img.Bounds().Dy()
		resp.Kind = class.String()
	case Video:
		filename := assetID + strings.ToLower(filepath.Ext(header.Filename))
		if err := copyFile(filepath.Join(h.dir, filename), file); err != nil {
			slog.Error("save video asset", "error", err, "id", assetID)
			http.Error(w, "failed to save file", http.StatusInternalServerError)
			return
		}
		resp.URL = "/assets/" + filename
		resp.Kind = class.String()
	default:
		http.Error(w, fmt.Sprintf("unsupported file type %q", filepath.Ext(header.Filename)), http.StatusBadRequest)
		return
	}

	slog.Info("asset uploaded", "id", assetID, "kind", resp.Kind, "name", resp.Name)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) savePNG(filename string, img image.Image) error {
	path := filepath.Join(h.dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an asset file from disk.
func (h *Handler) Delete(assetID string) error {
	for _, ext := range append([]string{"png"}, videoExtensions...) {
		path := filepath.Join(h.dir, assetID+"."+ext)
		if err := os.Remove(path); err == nil {
			os.Remove(path + ".poster.png")
			return nil
		}
	}
	return fmt.Errorf("asset not found: %s", assetID)
}

// HandleDelete handles DELETE /api/assets/{assetId}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["assetId"]
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)
		return
	}
	if err := h.Delete(assetID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	slog.Info("asset deleted", "id", assetID)
	w.WriteHeader(http.StatusNoContent)
}

// copyFile copies src reader to a file at dst path.
func copyFile(dst string, src io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}
