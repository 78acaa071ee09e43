package youtube

import (
	"math/rand"
	"path/filepath"
)

// CookieJar hands out browser-session cookie files for the extraction engine.
// The directory is re-scanned on every pick so cookie files can be added or
// removed while the bot runs.
type CookieJar struct {
	dir string
}

func NewCookieJar(dir string) *CookieJar {
	return &CookieJar{dir: dir}
}

// Pick selects one cookie file uniformly at random, independently per call.
// Two concurrent fetches may get different cookies for the same target; that
// spread is intentional, one blocked cookie should not stall all traffic.
// Returns "" when the directory is missing or holds no cookie files.
func (j *CookieJar) Pick() string {
	if j == nil || j.dir == "" {
		return ""
	}
	files, err := filepath.Glob(filepath.Join(j.dir, "*.txt"))
	if err != nil || len(files) == 0 {
		return ""
	}
	return files[rand.Intn(len(files))]
}
