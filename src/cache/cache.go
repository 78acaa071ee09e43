package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/avashisth/sangeet/src/sys"
)

// Store indexes downloaded media files by video id so repeated plays of the
// same track skip the fetch entirely. Rows older than the TTL are swept
// together with their files.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

func Open(path string, ttl time.Duration) (*Store, error) {
	// Reference the driver so its init() registration is explicit.
	_ = sqlite3.SQLiteDriver{}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS downloads (
		video_id   TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating downloads table: %w", err)
	}

	return &Store{db: db, ttl: ttl}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached file for a video id. A stale row or a row whose
// file vanished from disk counts as a miss and is dropped.
func (s *Store) Lookup(videoID string) (string, bool) {
	var path string
	var fetchedAt int64
	err := s.db.QueryRow(
		`SELECT path, fetched_at FROM downloads WHERE video_id = ?`, videoID,
	).Scan(&path, &fetchedAt)
	if err != nil {
		return "", false
	}

	if time.Since(time.Unix(0, fetchedAt)) > s.ttl {
		s.evict(videoID, path)
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		s.evict(videoID, "")
		return "", false
	}
	return path, true
}

// Put records a freshly downloaded file.
func (s *Store) Put(videoID, path string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO downloads (video_id, path, fetched_at) VALUES (?, ?, ?)`,
		videoID, path, time.Now().UnixNano(),
	)
	return err
}

func (s *Store) evict(videoID, path string) {
	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			sys.LogCache("Failed to remove %s: %v", path, err)
		}
	}
	_, _ = s.db.Exec(`DELETE FROM downloads WHERE video_id = ?`, videoID)
}

// Sweep removes every expired row and its file, returning how many rows went.
func (s *Store) Sweep() (int, error) {
	cutoff := time.Now().Add(-s.ttl).UnixNano()
	rows, err := s.db.Query(`SELECT video_id, path FROM downloads WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type victim struct{ id, path string }
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.id, &v.path); err != nil {
			return 0, err
		}
		victims = append(victims, v)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, v := range victims {
		s.evict(v.id, v.path)
	}
	return len(victims), nil
}

// StartJanitor sweeps on the configured interval until ctx is cancelled.
func (s *Store) StartJanitor(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.Sweep(); err != nil {
					sys.LogCache("Sweep failed: %v", err)
				} else if n > 0 {
					sys.LogCache("Swept %d expired downloads", n)
				}
			}
		}
	}()
}
