package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"github.com/vidgate/vidgate/internal/auth"
	"github.com/vidgate/vidgate/internal/httputil"
	"github.com/vidgate/vidgate/internal/rank"
	"github.com/vidgate/vidgate/internal/store"
)

// streamChunkSize bounds how much is written between cancellation checks.
const streamChunkSize = 64 * 1024

type Handler struct {
	store   *store.Store
	gateway *Gateway
}

func NewHandler(s *store.Store, g *Gateway) *Handler {
	return &Handler{store: s, gateway: g}
}

type videoItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Rank        string `json:"rank"`
	Description string `json:"description"`
	MediaURL    string `json:"mediaUrl"`
	ThumbURL    string `json:"thumbUrl,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

func toItem(v store.Video, truncateDescription bool) videoItem {
	desc := v.Description
	if truncateDescription && len(desc) > 100 {
		desc = desc[:100]
	}
	item := videoItem{
		ID:          v.ID,
		Title:       v.Title,
		Rank:        v.Rank.String(),
		Description: desc,
		MediaURL:    fmt.Sprintf("/video/%s/%s", v.Rank, v.Filename),
		Duration:    v.Duration,
	}
	if v.Thumbnail != "" {
		item.ThumbURL = fmt.Sprintf("/thumb/%s/%s", v.Rank, v.Thumbnail)
	}
	return item
}

// List returns the videos visible to the caller's rank, in table order,
// with optional title search (?q=) and rank filter (?rank=).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	filterRank, filterErr := rank.Parse(r.URL.Query().Get("rank"))
	hasFilter := filterErr == nil

	items := []videoItem{}
	for _, v := range h.store.ListVisible(id.Rank) {
		if hasFilter && v.Rank != filterRank {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(v.Title), q) {
			continue
		}
		items = append(items, toItem(v, true))
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

// Watch returns the descriptor for one video. Unauthenticated, denied, and
// nonexistent all produce the same not-available response.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteNotAvailable(w)
		return
	}
	v, err := h.gateway.ResolveForViewing(id.Rank, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteNotAvailable(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItem(v, false))
}

// StreamVideo serves media bytes for /video/{rank}/{filename} with
// single-range partial content support.
func (h *Handler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "video/mp4")
}

// StreamThumb serves thumbnail bytes for /thumb/{rank}/{filename}. Same
// authorization path as the media itself.
func (h *Handler) StreamThumb(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "image/jpeg")
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, contentType string) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteNotAvailable(w)
		return
	}

	pathRank, err := rank.Parse(chi.URLParam(r, "rank"))
	if err != nil {
		httputil.WriteNotAvailable(w)
		return
	}
	filename := chi.URLParam(r, "filename")

	f, size, err := h.gateway.OpenMedia(id.Rank, pathRank, filename)
	if err != nil {
		if errors.Is(err, ErrNotAvailable) {
			httputil.WriteNotAvailable(w)
		} else {
			slog.Error("media open failed", "file", filename, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	defer f.Close()

	rng, err := parseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		httputil.WriteError(w, http.StatusRequestedRangeNotSatisfiable, "range not satisfiable")
		return
	}

	logPlayback(r, id, filename, rng)

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	offset, length := int64(0), size
	status := http.StatusOK
	if rng != nil {
		offset, length = rng.start, rng.length
		status = http.StatusPartialContent
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end(), size))
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", length))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		slog.Error("media seek failed", "file", filename, "error", err)
		return
	}
	copyChunks(w, r, f, filename, length)
}

// copyChunks streams length bytes in bounded chunks, checking for client
// cancellation between chunks so a disconnect releases the file promptly.
// Errors mid-stream truncate the response; headers are already out.
func copyChunks(w http.ResponseWriter, r *http.Request, f *os.File, filename string, length int64) {
	ctx := r.Context()
	remaining := length
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		default:
		}
		chunk := int64(streamChunkSize)
		if remaining < chunk {
			chunk = remaining
		}
		n, err := io.CopyN(w, f, chunk)
		remaining -= n
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.Error("stream aborted", "file", filename, "remaining", remaining, "error", err)
			}
			return
		}
	}
}

func logPlayback(r *http.Request, id auth.Identity, filename string, rng *byteRange) {
	ua := useragent.New(r.UserAgent())
	browser, _ := ua.Browser()
	attrs := []any{
		"user", id.Username,
		"user_rank", id.Rank.String(),
		"file", filename,
		"browser", browser,
		"os", ua.OS(),
	}
	if rng != nil {
		attrs = append(attrs, "range_start", rng.start, "range_len", rng.length)
	}
	slog.Info("stream start", attrs...)
}
