package youtube

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/avashisth/sangeet/src/sys"
)

// Resolver turns a classified query into track metadata. It tries the Data
// API first because it is cheap and fast but quota-limited, then falls back
// unconditionally to the extraction engine, which is slower and more fragile
// but has no quota.
type Resolver struct {
	api     *DataAPI
	keys    *KeyPool
	cookies *CookieJar
	proxy   string

	// extract is the fallback seam; tests substitute a fake.
	extract func(ctx context.Context, query, cookieFile string) (*TrackMetadata, error)
}

func NewResolver(api *DataAPI, keys *KeyPool, cookies *CookieJar, proxy string) *Resolver {
	r := &Resolver{
		api:     api,
		keys:    keys,
		cookies: cookies,
		proxy:   proxy,
	}
	r.extract = r.ytdlpExtract
	return r
}

// Resolve runs the query through the API-then-fallback state machine. A
// terminal failure means the caller must not retry with the same input; both
// paths are already spent.
func (r *Resolver) Resolve(ctx context.Context, query *TrackQuery) (*TrackMetadata, error) {
	if query == nil {
		return nil, ErrNoQuery
	}

	for {
		key, index, ok := r.keys.Current()
		if !ok {
			break
		}
		meta, status, err := r.apiAttempt(ctx, key, query)
		switch status {
		case apiOK:
			return meta, nil
		case apiQuota:
			sys.LogWarn("YouTube quota finished on key #%d, switching", index+1)
			if !r.keys.Advance(index) {
				sys.LogError("All YouTube API keys are exhausted")
			}
			continue
		default:
			// Not a quota problem; rotating keys would not help.
			sys.LogYouTube("Data API failed (%v), falling back to extraction", err)
			goto fallback
		}
	}

fallback:
	meta, err := r.extract(ctx, r.extractionQuery(query), r.cookies.Pick())
	if err != nil {
		if r.keys.Len() > 0 && r.keys.Exhausted() {
			return nil, fmt.Errorf("%w: %w: %v", ErrResolveFailed, ErrKeysExhausted, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrResolveFailed, err)
	}
	return meta, nil
}

// apiAttempt runs one full Data API pass with a single key: an optional
// search call for free text, then the details call.
func (r *Resolver) apiAttempt(ctx context.Context, key string, query *TrackQuery) (*TrackMetadata, apiStatus, error) {
	videoID := query.videoIDHint()
	if videoID == "" {
		id, status, err := r.api.SearchID(ctx, key, query.Value)
		if status != apiOK {
			return nil, status, err
		}
		videoID = id
	}
	return r.api.VideoDetails(ctx, key, videoID)
}

// videoIDHint returns the id already present in the query, if any.
func (q *TrackQuery) videoIDHint() string {
	switch q.Kind {
	case VideoID:
		return q.Value
	case DirectLink:
		return ExtractVideoID(q.Value)
	}
	return ""
}

// extractionQuery builds the argument handed to the extraction engine: a
// top-1 search directive for anything without a known id, the canonical
// watch URL otherwise.
func (r *Resolver) extractionQuery(query *TrackQuery) string {
	if id := query.videoIDHint(); id != "" {
		return WatchBase + id
	}
	return "ytsearch1:" + query.Value
}

// ytdlpExtract asks yt-dlp for metadata without downloading anything. For
// search directives the result is playlist-shaped; printing is capped to the
// first entry.
func (r *Resolver) ytdlpExtract(ctx context.Context, query, cookieFile string) (*TrackMetadata, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()
	if r.proxy != "" {
		cmd.Proxy(r.proxy)
	}
	if cookieFile != "" {
		cmd.Cookies(cookieFile)
	}

	res, err := cmd.
		Print("%(id)s\t%(title)s\t%(duration)s\t%(thumbnail)s").
		PlaylistItems("1").
		IgnoreConfig().
		Run(ctx, "--skip-download", "--no-check-certificates", "--geo-bypass", query)
	if err != nil {
		if res != nil {
			sys.LogYouTube("yt-dlp extraction failed: %v, stderr: %s", err, res.Stderr)
		}
		return nil, err
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 4 || parts[0] == "" || parts[0] == "NA" {
			continue
		}
		seconds, _ := strconv.Atoi(parts[2])
		return &TrackMetadata{
			Title:         parts[1],
			DurationLabel: FormatSeconds(seconds),
			DurationSec:   seconds,
			Thumbnail:     parts[3],
			VideoID:       parts[0],
			Link:          WatchBase + parts[0],
		}, nil
	}
	return nil, errors.New("no extractable entries")
}
