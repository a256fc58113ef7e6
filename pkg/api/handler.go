package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hmizuno/excalidraw-local/pkg/drawing"
	"github.com/hmizuno/excalidraw-local/pkg/obsidian"
	"github.com/hmizuno/excalidraw-local/pkg/store"
	"github.com/hmizuno/excalidraw-local/pkg/sync"
)

// Handler holds dependencies for API handlers
type Handler struct {
	Store *store.Store
	Git   *sync.Manager
	Log   *slog.Logger
}

// SaveFileRequest is the payload for POST /api/save-file.
type SaveFileRequest struct {
	Filepath    string          `json:"filepath"`
	Data        json.RawMessage `json:"data"`
	ForceBackup bool            `json:"force_backup"`
}

// SaveFileResponse mirrors the frontend's expected save result.
type SaveFileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Hash    string `json:"hash,omitempty"`
}

// HandleRoot handles GET /
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Excalidraw File API"})
}

// HandleLoadFile handles GET /api/load-file
func (h *Handler) HandleLoadFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("filepath")
	if path == "" {
		writeError(w, http.StatusBadRequest, "filepath query parameter is required")
		return
	}

	ref := store.Resolve(path)
	doc, modified, err := h.Store.Load(ref)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "File not found")
		case errors.Is(err, obsidian.ErrFormat), errors.Is(err, store.ErrMalformed):
			writeError(w, http.StatusBadRequest, "Invalid drawing file: "+err.Error())
		default:
			h.Log.Error("load failed", "path", path, "err", err)
			writeError(w, http.StatusInternalServerError, "Error loading file: "+err.Error())
		}
		return
	}

	hash, err := drawing.ComputeHash(doc)
	if err != nil {
		h.Log.Error("hash failed", "path", path, "err", err)
		writeError(w, http.StatusInternalServerError, "Error hashing file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":     doc,
		"modified": unixSeconds(modified),
		"hash":     hash,
	})
}

// HandleFileInfo handles GET /api/file-info
func (h *Handler) HandleFileInfo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("filepath")
	if path == "" {
		writeError(w, http.StatusBadRequest, "filepath query parameter is required")
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error getting file info: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modified": unixSeconds(info.ModTime()),
		"exists":   true,
	})
}

// HandleSaveFile handles POST /api/save-file
func (h *Handler) HandleSaveFile(w http.ResponseWriter, r *http.Request) {
	var req SaveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Filepath == "" {
		writeError(w, http.StatusBadRequest, "filepath is required")
		return
	}

	doc, err := drawing.Parse(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drawing data: "+err.Error())
		return
	}

	ref := store.Resolve(req.Filepath)
	res, err := h.Store.Save(ref, doc, req.ForceBackup)
	if err != nil {
		if errors.Is(err, store.ErrFileLocked) {
			writeError(w, http.StatusLocked, err.Error())
			return
		}
		h.Log.Error("save failed", "path", req.Filepath, "err", err)
		writeError(w, http.StatusInternalServerError, "Error saving file: "+err.Error())
		return
	}

	if res.Success && h.Git != nil {
		go func() {
			if err := h.Git.Sync("Update " + filepath.Base(req.Filepath)); err != nil {
				h.Log.Warn("git sync failed", "err", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, SaveFileResponse{
		Success: res.Success,
		Message: res.Message,
		Hash:    res.Hash,
	})
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
