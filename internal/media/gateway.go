// Package media is the access-controlled gateway between authenticated
// viewers and the rank-partitioned media tree. Every operation evaluates
// the rank policy against the store's own record for the video; nothing a
// client supplies, not even the rank segment of a URL, is trusted for the
// authorization decision or the filesystem lookup.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidgate/vidgate/internal/rank"
	"github.com/vidgate/vidgate/internal/store"
)

// ErrNotAvailable is the single external outcome for a video that does not
// exist, is recorded but missing on disk, or exists above the caller's
// rank. Collapsing the three keeps a response from revealing whether a
// forbidden video exists at all.
var ErrNotAvailable = errors.New("media: not available")

type Gateway struct {
	store *store.Store
	root  string
}

func NewGateway(s *store.Store, mediaRoot string) *Gateway {
	return &Gateway{store: s, root: mediaRoot}
}

// EnsureDirs creates the rank-scoped media directories under the root.
func (g *Gateway) EnsureDirs() error {
	for _, r := range rank.All() {
		if err := os.MkdirAll(g.Dir(r), 0o755); err != nil {
			return fmt.Errorf("create media dir for %s: %w", r, err)
		}
	}
	return nil
}

// Dir returns the storage directory for a rank. The directory for rank R
// holds only media whose store record carries rank R.
func (g *Gateway) Dir(r rank.Rank) string {
	return filepath.Join(g.root, r.String())
}

// MediaPath returns the on-disk location for a video record's media file.
func (g *Gateway) MediaPath(v store.Video) string {
	return filepath.Join(g.Dir(v.Rank), v.Filename)
}

// ThumbPath returns the on-disk location for a video record's thumbnail,
// or "" when the record has none.
func (g *Gateway) ThumbPath(v store.Video) string {
	if v.Thumbnail == "" {
		return ""
	}
	return filepath.Join(g.Dir(v.Rank), v.Thumbnail)
}

// ResolveForViewing authorizes userRank against the video's recorded rank
// and returns the record for rendering a watch page. Denied and absent are
// the same ErrNotAvailable externally; the log keeps them apart.
func (g *Gateway) ResolveForViewing(userRank rank.Rank, videoID string) (store.Video, error) {
	v, err := g.store.GetVideo(videoID)
	if err != nil {
		return store.Video{}, ErrNotAvailable
	}
	if !rank.CanAccess(userRank, v.Rank) {
		slog.Info("viewing denied", "video", videoID, "video_rank", v.Rank.String(), "user_rank", userRank.String())
		return store.Video{}, ErrNotAvailable
	}
	return v, nil
}

// OpenMedia resolves a rank-scoped filename to an open media file. The
// path's rank segment only selects which table rows can match; the rank
// used for both the policy check and the filesystem lookup is the one on
// the store record. The check runs fresh on every call.
func (g *Gateway) OpenMedia(userRank, pathRank rank.Rank, filename string) (*os.File, int64, error) {
	v, err := g.store.GetVideoByFile(pathRank, filename)
	if err != nil {
		return nil, 0, ErrNotAvailable
	}
	if !rank.CanAccess(userRank, v.Rank) {
		slog.Info("stream denied", "video", v.ID, "video_rank", v.Rank.String(), "user_rank", userRank.String())
		return nil, 0, ErrNotAvailable
	}
	return g.open(v.Rank, filename)
}

func (g *Gateway) open(r rank.Rank, filename string) (*os.File, int64, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, 0, ErrNotAvailable
	}
	dir := g.Dir(r)
	path := filepath.Join(dir, name)
	if !strings.HasPrefix(path, filepath.Clean(dir)+string(os.PathSeparator)) {
		return nil, 0, ErrNotAvailable
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Metadata/filesystem drift: the record exists but the file is
			// gone. Reported like any other missing video.
			slog.Warn("media file missing for recorded video", "path", path)
			return nil, 0, ErrNotAvailable
		}
		return nil, 0, fmt.Errorf("open media: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat media: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, ErrNotAvailable
	}
	return f, info.Size(), nil
}

// sanitizeFilename strips any path structure from a client-supplied
// filename, leaving just the base name or "" when nothing safe remains.
func sanitizeFilename(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(os.PathSeparator) {
		return ""
	}
	return name
}
