package media

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vidgate/vidgate/internal/auth"
	"github.com/vidgate/vidgate/internal/rank"
	"github.com/vidgate/vidgate/internal/store"
)

type fixture struct {
	store   *store.Store
	gateway *Gateway
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storeDir := t.TempDir()
	if err := store.Ensure(storeDir); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	st, err := store.Open(storeDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	g := NewGateway(st, t.TempDir())
	if err := g.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	h := NewHandler(st, g)
	r := chi.NewRouter()
	r.Get("/api/videos", h.List)
	r.Get("/api/watch/{id}", h.Watch)
	r.Get("/video/{rank}/{filename}", h.StreamVideo)
	r.Get("/thumb/{rank}/{filename}", h.StreamThumb)

	return &fixture{store: st, gateway: g, router: r}
}

// addVideo records a video and writes its media file with the given bytes.
func (f *fixture) addVideo(t *testing.T, id, filename string, r rank.Rank, content []byte) {
	t.Helper()
	if err := f.store.AddVideo(store.Video{ID: id, Title: id, Filename: filename, Rank: r}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	if content != nil {
		path := filepath.Join(f.gateway.Dir(r), filename)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("write media: %v", err)
		}
	}
}

func (f *fixture) request(t *testing.T, id *auth.Identity, target, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != nil {
		req = req.WithContext(auth.ContextWithIdentity(req.Context(), *id))
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func body(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func freeUser() *auth.Identity   { return &auth.Identity{Username: "viewer", Rank: rank.Free} }
func middleUser() *auth.Identity { return &auth.Identity{Username: "member", Rank: rank.Middle} }
func topUser() *auth.Identity    { return &auth.Identity{Username: "vip", Rank: rank.Top} }

func TestStream_FullContent(t *testing.T) {
	f := newFixture(t)
	content := body(1000)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, content)

	rec := f.request(t, freeUser(), "/video/free/clip.mp4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Length"); got != "1000" {
		t.Errorf("Content-Length = %s, want 1000", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %s, want bytes", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Error("body does not match file content")
	}
}

func TestStream_PartialContent(t *testing.T) {
	f := newFixture(t)
	content := body(1000)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, content)

	rec := f.request(t, freeUser(), "/video/free/clip.mp4", "bytes=0-99")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-99/1000" {
		t.Errorf("Content-Range = %q, want bytes 0-99/1000", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "100" {
		t.Errorf("Content-Length = %s, want 100", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content[:100]) {
		t.Error("body does not match requested range")
	}
}

func TestStream_OvershootingEndClamps(t *testing.T) {
	f := newFixture(t)
	content := body(1000)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, content)

	rec := f.request(t, freeUser(), "/video/free/clip.mp4", "bytes=900-2000")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 900-999/1000" {
		t.Errorf("Content-Range = %q, want bytes 900-999/1000", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content[900:]) {
		t.Error("body does not match clamped range")
	}
}

func TestStream_StartBeyondEOFUnsatisfiable(t *testing.T) {
	f := newFixture(t)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, body(1000))

	rec := f.request(t, freeUser(), "/video/free/clip.mp4", "bytes=2000-")
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
		t.Errorf("Content-Range = %q, want bytes */1000", got)
	}
}

func TestStream_SuffixRange(t *testing.T) {
	f := newFixture(t)
	content := body(1000)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, content)

	rec := f.request(t, freeUser(), "/video/free/clip.mp4", "bytes=-100")
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 900-999/1000" {
		t.Errorf("Content-Range = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content[900:]) {
		t.Error("body does not match suffix range")
	}
}

func TestStream_DeniedLooksLikeMissing(t *testing.T) {
	f := newFixture(t)
	f.addVideo(t, "v1", "secret.mp4", rank.Top, body(100))

	denied := f.request(t, freeUser(), "/video/top/secret.mp4", "")
	missing := f.request(t, freeUser(), "/video/free/nonexistent.mp4", "")

	if denied.Code != http.StatusNotFound {
		t.Errorf("denied status = %d, want 404", denied.Code)
	}
	if denied.Code != missing.Code || denied.Body.String() != missing.Body.String() {
		t.Error("denied and missing responses must be indistinguishable")
	}
}

func TestStream_UnauthenticatedSameShape(t *testing.T) {
	f := newFixture(t)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, body(100))

	anon := f.request(t, nil, "/video/free/clip.mp4", "")
	missing := f.request(t, freeUser(), "/video/free/nope.mp4", "")

	if anon.Code != missing.Code || anon.Body.String() != missing.Body.String() {
		t.Error("unauthenticated and missing responses must be indistinguishable")
	}
}

func TestStream_PathRankNeverOverridesRecord(t *testing.T) {
	f := newFixture(t)
	// Two records sharing a filename under different ranks.
	f.addVideo(t, "top1", "x.mp4", rank.Top, body(500))
	f.addVideo(t, "free1", "x.mp4", rank.Free, body(200))

	// A free user may fetch the free-ranked x.mp4 but not the top one,
	// whichever rank segment appears in the path.
	if rec := f.request(t, freeUser(), "/video/free/x.mp4", ""); rec.Code != http.StatusOK {
		t.Errorf("free fetch of free video: status %d", rec.Code)
	} else if rec.Body.Len() != 200 {
		t.Errorf("free fetch returned %d bytes, want the free-ranked file's 200", rec.Body.Len())
	}
	if rec := f.request(t, freeUser(), "/video/top/x.mp4", ""); rec.Code != http.StatusNotFound {
		t.Errorf("free fetch of top path: status %d, want 404", rec.Code)
	}

	// A top user under the top path gets the top-ranked file's bytes.
	if rec := f.request(t, topUser(), "/video/top/x.mp4", ""); rec.Code != http.StatusOK {
		t.Errorf("top fetch of top video: status %d", rec.Code)
	} else if rec.Body.Len() != 500 {
		t.Errorf("top fetch returned %d bytes, want 500", rec.Body.Len())
	}
}

func TestStream_InvalidRankSegment(t *testing.T) {
	f := newFixture(t)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, body(100))

	rec := f.request(t, freeUser(), "/video/platinum/clip.mp4", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStream_MetadataDriftIsNotAvailable(t *testing.T) {
	f := newFixture(t)
	// Record exists, file never written.
	f.addVideo(t, "v1", "ghost.mp4", rank.Free, nil)

	rec := f.request(t, freeUser(), "/video/free/ghost.mp4", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStream_TraversalFilenameRejected(t *testing.T) {
	f := newFixture(t)
	f.addVideo(t, "v1", "clip.mp4", rank.Free, body(100))

	rec := f.request(t, freeUser(), "/video/free/..%2F..%2Fusers.xlsx", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestThumb_SameAuthorizationAsMedia(t *testing.T) {
	f := newFixture(t)
	if err := f.store.AddVideo(store.Video{ID: "v1", Title: "v1", Filename: "clip.mp4", Rank: rank.Middle, Thumbnail: "clip.jpg"}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}
	thumb := body(50)
	if err := os.WriteFile(filepath.Join(f.gateway.Dir(rank.Middle), "clip.jpg"), thumb, 0o644); err != nil {
		t.Fatalf("write thumb: %v", err)
	}

	if rec := f.request(t, middleUser(), "/thumb/middle/clip.jpg", ""); rec.Code != http.StatusOK {
		t.Errorf("middle user thumb: status %d", rec.Code)
	}
	if rec := f.request(t, freeUser(), "/thumb/middle/clip.jpg", ""); rec.Code != http.StatusNotFound {
		t.Errorf("free user thumb of middle video: status %d, want 404", rec.Code)
	}
}

func TestWatch_DescriptorAndDenial(t *testing.T) {
	f := newFixture(t)
	if err := f.store.AddVideo(store.Video{ID: "v1", Title: "Launch", Filename: "l.mp4", Rank: rank.Middle, Description: "d", Duration: 42}); err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	ok := f.request(t, topUser(), "/api/watch/v1", "")
	if ok.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", ok.Code, ok.Body.String())
	}
	for _, want := range []string{`"title":"Launch"`, `"duration":42`, `"mediaUrl":"/video/middle/l.mp4"`} {
		if !bytes.Contains(ok.Body.Bytes(), []byte(want)) {
			t.Errorf("descriptor missing %s: %s", want, ok.Body.String())
		}
	}

	denied := f.request(t, freeUser(), "/api/watch/v1", "")
	missing := f.request(t, freeUser(), "/api/watch/nope", "")
	if denied.Code != missing.Code || denied.Body.String() != missing.Body.String() {
		t.Error("denied and missing watch responses must be indistinguishable")
	}
}

func TestList_VisibilityAndSearch(t *testing.T) {
	f := newFixture(t)
	f.addVideo(t, "t1", "a.mp4", rank.Top, nil)
	f.addVideo(t, "m1", "b.mp4", rank.Middle, nil)
	f.addVideo(t, "f1", "c.mp4", rank.Free, nil)

	rec := f.request(t, middleUser(), "/api/videos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(`"id":"t1"`)) {
		t.Error("middle user must not see top-ranked videos")
	}
	for _, want := range []string{`"id":"m1"`, `"id":"f1"`} {
		if !bytes.Contains(rec.Body.Bytes(), []byte(want)) {
			t.Errorf("listing missing %s", want)
		}
	}

	search := f.request(t, middleUser(), "/api/videos?q=m1", "")
	if !bytes.Contains(search.Body.Bytes(), []byte(`"id":"m1"`)) || bytes.Contains(search.Body.Bytes(), []byte(`"id":"f1"`)) {
		t.Errorf("search result wrong: %s", search.Body.String())
	}

	filtered := f.request(t, middleUser(), "/api/videos?rank=free", "")
	if bytes.Contains(filtered.Body.Bytes(), []byte(`"id":"m1"`)) || !bytes.Contains(filtered.Body.Bytes(), []byte(`"id":"f1"`)) {
		t.Errorf("rank filter wrong: %s", filtered.Body.String())
	}
}

func TestList_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, nil, "/api/videos", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
