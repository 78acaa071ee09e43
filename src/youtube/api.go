package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/avashisth/sangeet/src/sys"
)

const dataAPIBase = "https://www.googleapis.com/youtube/v3"

// apiStatus is the tri-state outcome of a Data API call. The resolver
// branches on it directly instead of sniffing error types.
type apiStatus int

const (
	apiOK apiStatus = iota
	// apiQuota is an HTTP 403-class response: the key's daily unit budget
	// is gone and the pool should rotate.
	apiQuota
	// apiFailed covers everything else: network errors, malformed bodies,
	// empty result sets. No key rotation, straight to the fallback.
	apiFailed
)

// DataAPI is a thin client for the structured metadata API. All calls go
// through one shared rate limiter so a burst of chats cannot burn a key's
// quota in seconds.
type DataAPI struct {
	BaseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewDataAPI(proxyURL string) *DataAPI {
	transport := &http.Transport{}
	if proxyURL != "" {
		if proxy, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		} else {
			sys.LogWarn("Ignoring unparseable proxy URL: %v", err)
		}
	}
	return &DataAPI{
		BaseURL: dataAPIBase,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(8), 8),
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// SearchID looks up the top video id for a free-text query.
func (a *DataAPI) SearchID(ctx context.Context, key, query string) (string, apiStatus, error) {
	params := url.Values{}
	params.Set("part", "id")
	params.Set("q", query)
	params.Set("maxResults", "1")
	params.Set("type", "video")
	params.Set("key", key)

	body, status, err := a.get(ctx, "/search", params)
	if status != apiOK {
		return "", status, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apiFailed, fmt.Errorf("decoding search response: %w", err)
	}
	if len(parsed.Items) == 0 || parsed.Items[0].ID.VideoID == "" {
		return "", apiFailed, fmt.Errorf("search returned no videos for %q", query)
	}
	return parsed.Items[0].ID.VideoID, apiOK, nil
}

// VideoDetails fetches snippet and duration fields for a known id.
func (a *DataAPI) VideoDetails(ctx context.Context, key, videoID string) (*TrackMetadata, apiStatus, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", videoID)
	params.Set("key", key)

	body, status, err := a.get(ctx, "/videos", params)
	if status != apiOK {
		return nil, status, err
	}

	var parsed videosResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apiFailed, fmt.Errorf("decoding videos response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, apiFailed, fmt.Errorf("no video found for id %s", videoID)
	}

	item := parsed.Items[0]
	label, seconds := ParseISODuration(item.ContentDetails.Duration)
	return &TrackMetadata{
		Title:         item.Snippet.Title,
		DurationLabel: label,
		DurationSec:   seconds,
		Thumbnail:     item.Snippet.Thumbnails.High.URL,
		VideoID:       videoID,
		Link:          WatchBase + videoID,
	}, apiOK, nil
}

func (a *DataAPI) get(ctx context.Context, path string, params url.Values) ([]byte, apiStatus, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, apiFailed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apiFailed, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apiFailed, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apiFailed, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, apiOK, nil
	case resp.StatusCode == http.StatusForbidden:
		return nil, apiQuota, fmt.Errorf("data api quota response: %s", resp.Status)
	default:
		return nil, apiFailed, fmt.Errorf("data api status %s", resp.Status)
	}
}
