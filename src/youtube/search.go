package youtube

import (
	"context"
	"sync"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

// SearchResult is one row in an interactive track picker.
type SearchResult struct {
	VideoID  string
	Title    string
	Artist   string
	Duration int
}

// SearchTracks queries YouTube Music and plain YouTube search concurrently,
// deduplicates by video id and returns music results first. Both sources are
// best effort; a slow or failing one just contributes nothing before the
// deadline.
func SearchTracks(ctx context.Context, query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var mu sync.Mutex
	var music, plain []SearchResult
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		search := ytmusic.TrackSearch(query)
		result, err := search.Next()
		if err != nil {
			return
		}
		for _, track := range result.Tracks {
			if track.VideoID == "" {
				continue
			}
			artist := ""
			if len(track.Artists) > 0 {
				artist = track.Artists[0].Name
			}
			mu.Lock()
			if !seen[track.VideoID] {
				seen[track.VideoID] = true
				music = append(music, SearchResult{
					VideoID:  track.VideoID,
					Title:    track.Title,
					Artist:   artist,
					Duration: track.Duration,
				})
			}
			mu.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		client := ytsearch.NewClient(nil)
		result, err := client.Search(ctx, query)
		if err != nil {
			return
		}
		for _, video := range result.Results {
			mu.Lock()
			if !seen[video.VideoID] {
				seen[video.VideoID] = true
				plain = append(plain, SearchResult{
					VideoID: video.VideoID,
					Title:   video.Title,
				})
			}
			mu.Unlock()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	combined := append(music, plain...)
	if len(combined) > limit {
		combined = combined[:limit]
	}
	return combined
}
