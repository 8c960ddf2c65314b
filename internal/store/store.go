// Package store is the durable metadata store for users and videos. The
// backing format is a pair of flat workbook tables (users.xlsx,
// videos.xlsx). The tables carry no native transactional guarantees, so
// every write rebuilds the full table and atomically swaps it into place;
// readers never observe a half-written file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidgate/vidgate/internal/rank"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrExists   = errors.New("store: already exists")
)

const (
	usersFile  = "users.xlsx"
	videosFile = "videos.xlsx"

	// Seed credentials for a fresh deployment, matching the workbook the
	// original installer produced. Change the password after first login.
	seedAdminUser     = "admin"
	seedAdminPassword = "@admin"
)

type User struct {
	Username     string
	PasswordHash string
	Rank         rank.Rank
}

type Video struct {
	ID          string
	Title       string
	Filename    string
	Rank        rank.Rank
	Description string
	Thumbnail   string
	Duration    int // seconds, 0 when not probed
}

// Store holds both tables in memory and persists every mutation before it
// becomes visible. A write takes the exclusive lock for its full duration,
// including the workbook swap, so concurrent writers never interleave;
// reads share the lock among themselves. Lookups are linear scans, which
// is fine at the table sizes this deployment sees.
type Store struct {
	dir string

	mu     sync.RWMutex
	users  []User
	videos []Video
}

// Ensure creates missing workbook files in dir: an empty videos table and
// a users table seeded with the default admin account. Existing files are
// left untouched.
func Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	usersPath := filepath.Join(dir, usersFile)
	if _, err := os.Stat(usersPath); errors.Is(err, os.ErrNotExist) {
		hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		seed := []User{{Username: seedAdminUser, PasswordHash: string(hash), Rank: rank.Top}}
		if err := saveUsers(usersPath, seed); err != nil {
			return fmt.Errorf("seed users table: %w", err)
		}
	}
	videosPath := filepath.Join(dir, videosFile)
	if _, err := os.Stat(videosPath); errors.Is(err, os.ErrNotExist) {
		if err := saveVideos(videosPath, nil); err != nil {
			return fmt.Errorf("seed videos table: %w", err)
		}
	}
	return nil
}

// Open loads both tables from dir. A missing or unreadable table is an
// error; callers treat that as fatal at startup.
func Open(dir string) (*Store, error) {
	users, err := loadUsers(filepath.Join(dir, usersFile))
	if err != nil {
		return nil, err
	}
	videos, err := loadVideos(filepath.Join(dir, videosFile))
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, users: users, videos: videos}, nil
}

func (s *Store) usersPath() string  { return filepath.Join(s.dir, usersFile) }
func (s *Store) videosPath() string { return filepath.Join(s.dir, videosFile) }

// Ping reports whether the backing tables are still present and readable.
func (s *Store) Ping() error {
	for _, p := range []string{s.usersPath(), s.videosPath()} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("store table unavailable: %w", err)
		}
	}
	return nil
}

func (s *Store) GetUser(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// Users returns all users in table order.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

// AddUser appends a new user row. ErrExists if the username is taken.
func (s *Store) AddUser(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.users {
		if e.Username == u.Username {
			return ErrExists
		}
	}
	next := append(cloneUsers(s.users), u)
	if err := saveUsers(s.usersPath(), next); err != nil {
		return err
	}
	s.users = next
	return nil
}

// UpdateUser replaces the row identified by username with u. The
// replacement may carry a new username; ErrExists if that name belongs to
// a different row.
func (s *Store) UpdateUser(username string, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, e := range s.users {
		if e.Username == username {
			idx = i
		} else if e.Username == u.Username {
			return ErrExists
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	next := cloneUsers(s.users)
	next[idx] = u
	if err := saveUsers(s.usersPath(), next); err != nil {
		return err
	}
	s.users = next
	return nil
}

func (s *Store) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]User, 0, len(s.users))
	found := false
	for _, e := range s.users {
		if e.Username == username {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return ErrNotFound
	}
	if err := saveUsers(s.usersPath(), next); err != nil {
		return err
	}
	s.users = next
	return nil
}

func (s *Store) GetVideo(id string) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.videos {
		if v.ID == id {
			return v, nil
		}
	}
	return Video{}, ErrNotFound
}

// GetVideoByFile resolves a rank-scoped filename to its video record. The
// record's rank must match r exactly; a video stored under a different
// rank never matches, so a path segment can never reach a differently
// ranked file that happens to share the name.
func (s *Store) GetVideoByFile(r rank.Rank, filename string) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.videos {
		if v.Rank == r && (v.Filename == filename || v.Thumbnail == filename) {
			return v, nil
		}
	}
	return Video{}, ErrNotFound
}

// ListVisible returns, in table order, every video whose rank is reachable
// from r under the access hierarchy.
func (s *Store) ListVisible(r rank.Rank) []Video {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Video
	for _, v := range s.videos {
		if rank.CanAccess(r, v.Rank) {
			out = append(out, v)
		}
	}
	return out
}

// Videos returns all videos in table order, regardless of rank.
func (s *Store) Videos() []Video {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Video, len(s.videos))
	copy(out, s.videos)
	return out
}

// AddVideo appends a new video row. ErrExists if the id is taken.
func (s *Store) AddVideo(v Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.videos {
		if e.ID == v.ID {
			return ErrExists
		}
	}
	next := append(cloneVideos(s.videos), v)
	if err := saveVideos(s.videosPath(), next); err != nil {
		return err
	}
	s.videos = next
	return nil
}

// UpdateVideo replaces the row identified by id with v.
func (s *Store) UpdateVideo(id string, v Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, e := range s.videos {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	next := cloneVideos(s.videos)
	next[idx] = v
	if err := saveVideos(s.videosPath(), next); err != nil {
		return err
	}
	s.videos = next
	return nil
}

func (s *Store) DeleteVideo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Video, 0, len(s.videos))
	found := false
	for _, e := range s.videos {
		if e.ID == id {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return ErrNotFound
	}
	if err := saveVideos(s.videosPath(), next); err != nil {
		return err
	}
	s.videos = next
	return nil
}

func cloneUsers(in []User) []User {
	out := make([]User, len(in))
	copy(out, in)
	return out
}

func cloneVideos(in []Video) []Video {
	out := make([]Video, len(in))
	copy(out, in)
	return out
}
