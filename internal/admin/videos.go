package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidgate/vidgate/internal/httputil"
	"github.com/vidgate/vidgate/internal/rank"
	"github.com/vidgate/vidgate/internal/store"
	"github.com/vidgate/vidgate/internal/validate"
)

// MaxUploadBytes caps a single multipart upload.
const MaxUploadBytes = 500 * 1024 * 1024

var allowedVideoExt = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mov":  true,
}

type adminVideoItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	Rank        string `json:"rank"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

func toAdminItem(v store.Video) adminVideoItem {
	return adminVideoItem{
		ID:          v.ID,
		Title:       v.Title,
		Filename:    v.Filename,
		Rank:        v.Rank.String(),
		Description: v.Description,
		Thumbnail:   v.Thumbnail,
		Duration:    v.Duration,
	}
}

// ListVideos returns every video regardless of rank, for the edit panel.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos := h.store.Videos()
	items := make([]adminVideoItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, toAdminItem(v))
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

// Upload accepts a multipart form (title, description, rank, video file),
// stores the media under the rank's directory, records the video, and
// kicks off thumbnail and duration processing in the background.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = "Untitled"
	}
	description := strings.TrimSpace(r.FormValue("description"))
	if msg := validate.Title(title); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.Description(description); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	videoRank, err := rank.Parse(r.FormValue("rank"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "rank must be top, middle, or free")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "video file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedVideoExt[ext] {
		httputil.WriteError(w, http.StatusBadRequest, "allowed video formats: mp4, webm, mkv, mov")
		return
	}

	filename := safeFilename(header.Filename, ext)
	// Filenames are the lookup key within a rank directory, so collisions
	// get a fresh name instead of overwriting someone else's media.
	if _, err := h.store.GetVideoByFile(videoRank, filename); err == nil {
		filename = uuid.NewString()[:8] + "-" + filename
	}

	dstPath := filepath.Join(h.gateway.Dir(videoRank), filename)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		slog.Error("upload create failed", "path", dstPath, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store media")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(dstPath)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store media")
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	v := store.Video{
		ID:          uuid.NewString(),
		Title:       title,
		Filename:    filename,
		Rank:        videoRank,
		Description: description,
	}
	if err := h.store.AddVideo(v); err != nil {
		os.Remove(dstPath)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	h.process(v.ID, strings.ReplaceAll(uuid.NewString(), "-", "")+".jpg")
	httputil.WriteJSON(w, http.StatusCreated, toAdminItem(v))
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Rank        *string `json:"rank"`
}

// UpdateVideo edits title, description, and rank. A rank change moves the
// media file and thumbnail into the new rank's directory before the
// record is rewritten, so the table never points at a file that is not
// where the rank says it is.
func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := h.store.GetVideo(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	oldRank := v.Rank

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			title = "Untitled"
		}
		if msg := validate.Title(title); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		v.Title = title
	}
	if req.Description != nil {
		if msg := validate.Description(*req.Description); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		v.Description = *req.Description
	}
	if req.Rank != nil {
		newRank, err := rank.Parse(*req.Rank)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "rank must be top, middle, or free")
			return
		}
		v.Rank = newRank
	}

	if v.Rank != oldRank {
		if err := h.moveRankFiles(v, oldRank); err != nil {
			slog.Error("rank move failed", "video", id, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to move media")
			return
		}
	}

	if err := h.store.UpdateVideo(id, v); err != nil {
		// The record write failed after the files moved; move them back so
		// table and tree stay consistent.
		if v.Rank != oldRank {
			restored := v
			restored.Rank = oldRank
			if undoErr := h.moveRankFiles(restored, v.Rank); undoErr != nil {
				slog.Error("rank move rollback failed", "video", id, "error", undoErr)
			}
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save video")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAdminItem(v))
}

// moveRankFiles relocates a video's media and thumbnail from their old
// rank directory into the directory for v.Rank.
func (h *Handler) moveRankFiles(v store.Video, from rank.Rank) error {
	names := []string{v.Filename}
	if v.Thumbnail != "" {
		names = append(names, v.Thumbnail)
	}
	moved := []string{}
	for _, name := range names {
		oldPath := filepath.Join(h.gateway.Dir(from), name)
		newPath := filepath.Join(h.gateway.Dir(v.Rank), name)
		if _, err := os.Stat(oldPath); err != nil {
			continue // drifted already; nothing to move
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			// Roll the earlier renames back before failing.
			for _, done := range moved {
				_ = os.Rename(filepath.Join(h.gateway.Dir(v.Rank), done), filepath.Join(h.gateway.Dir(from), done))
			}
			return fmt.Errorf("move %s: %w", name, err)
		}
		moved = append(moved, name)
	}
	return nil
}

// DeleteVideo removes the record and both underlying files.
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := h.store.GetVideo(id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "video not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load video")
		return
	}

	if err := h.store.DeleteVideo(id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	// File removal comes after the record is gone; a leftover file is
	// unreachable through the gateway, while the reverse order could leave
	// a record pointing at nothing.
	removeIfPresent(h.gateway.MediaPath(v))
	if p := h.gateway.ThumbPath(v); p != "" {
		removeIfPresent(p)
	}
	w.WriteHeader(http.StatusNoContent)
}

func removeIfPresent(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove media file", "path", path, "error", err)
	}
}

// safeFilename strips path structure and shell-hostile characters from an
// uploaded filename, falling back to a generated name when nothing
// usable remains.
func safeFilename(name, ext string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" || cleaned == strings.Trim(ext, ".") {
		return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	}
	if !strings.HasSuffix(strings.ToLower(cleaned), ext) {
		cleaned += ext
	}
	return cleaned
}
