package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeAPI simulates the Data API, answering per-key with either quota
// refusals or real-looking payloads.
type fakeAPI struct {
	mu        sync.Mutex
	quotaKeys map[string]bool
	failAll   bool
	seenKeys  []string
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		f.mu.Lock()
		f.seenKeys = append(f.seenKeys, key)
		f.mu.Unlock()

		if f.failAll {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if f.quotaKeys[key] {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/search":
			fmt.Fprint(w, `{"items":[{"id":{"videoId":"dQw4w9WgXcQ"}}]}`)
		case "/videos":
			fmt.Fprint(w, `{"items":[{"snippet":{"title":"Never Gonna Give You Up","thumbnails":{"high":{"url":"https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"}}},"contentDetails":{"duration":"PT3M33S"}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestResolver(t *testing.T, fake *fakeAPI, keys []string) (*Resolver, *KeyPool) {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	api := NewDataAPI("")
	api.BaseURL = server.URL

	pool := NewKeyPool(keys)
	resolver := NewResolver(api, pool, NewCookieJar(t.TempDir()), "")
	return resolver, pool
}

func TestResolveNilQuery(t *testing.T) {
	resolver, _ := newTestResolver(t, &fakeAPI{}, []string{"k1"})
	if _, err := resolver.Resolve(context.Background(), nil); !errors.Is(err, ErrNoQuery) {
		t.Fatalf("err = %v, want ErrNoQuery", err)
	}
}

func TestResolveLinkViaAPI(t *testing.T) {
	fake := &fakeAPI{}
	resolver, _ := newTestResolver(t, fake, []string{"k1"})
	resolver.extract = func(ctx context.Context, query, cookie string) (*TrackMetadata, error) {
		t.Fatal("fallback must not run when the API succeeds")
		return nil, nil
	}

	meta, err := resolver.Resolve(context.Background(), ClassifyText("https://youtu.be/dQw4w9WgXcQ"))
	if err != nil {
		t.Fatal(err)
	}
	if meta.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("video id = %q", meta.VideoID)
	}
	if meta.Link != WatchBase+"dQw4w9WgXcQ" {
		t.Errorf("link = %q, want canonical watch URL", meta.Link)
	}
	if meta.DurationLabel != "03:33" || meta.DurationSec != 213 {
		t.Errorf("duration = (%q, %d)", meta.DurationLabel, meta.DurationSec)
	}
}

func TestResolveFreeTextSearchesFirst(t *testing.T) {
	fake := &fakeAPI{}
	resolver, _ := newTestResolver(t, fake, []string{"k1"})

	meta, err := resolver.Resolve(context.Background(), ClassifyText("never gonna give you up"))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "Never Gonna Give You Up" {
		t.Errorf("title = %q", meta.Title)
	}
}

func TestResolveQuotaRotatesBeforeFallback(t *testing.T) {
	fake := &fakeAPI{quotaKeys: map[string]bool{"k1": true}}
	resolver, pool := newTestResolver(t, fake, []string{"k1", "k2"})
	resolver.extract = func(ctx context.Context, query, cookie string) (*TrackMetadata, error) {
		t.Fatal("fallback must not run while keys remain")
		return nil, nil
	}

	if _, err := resolver.Resolve(context.Background(), ClassifyText("https://youtu.be/dQw4w9WgXcQ")); err != nil {
		t.Fatal(err)
	}

	if len(fake.seenKeys) < 2 || fake.seenKeys[0] != "k1" || fake.seenKeys[1] != "k2" {
		t.Errorf("key order = %v, want k1 then k2", fake.seenKeys)
	}
	if key, _, _ := pool.Current(); key != "k2" {
		t.Errorf("cursor should rest on the surviving key, got %q", key)
	}
}

func TestResolveAllKeysQuotaFallsBack(t *testing.T) {
	fake := &fakeAPI{quotaKeys: map[string]bool{"k1": true, "k2": true}}
	resolver, pool := newTestResolver(t, fake, []string{"k1", "k2"})

	var gotQuery string
	resolver.extract = func(ctx context.Context, query, cookie string) (*TrackMetadata, error) {
		gotQuery = query
		return &TrackMetadata{
			Title:         "Shape of You",
			VideoID:       "JGwWNGJdvx8",
			DurationSec:   263,
			DurationLabel: FormatSeconds(263),
			Link:          WatchBase + "JGwWNGJdvx8",
		}, nil
	}

	meta, err := resolver.Resolve(context.Background(), ClassifyText("shape of you"))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "Shape of You" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.DurationLabel != "04:23" {
		t.Errorf("fallback label = %q, want division-derived 04:23", meta.DurationLabel)
	}
	if gotQuery != "ytsearch1:shape of you" {
		t.Errorf("extraction query = %q", gotQuery)
	}
	if !pool.Exhausted() {
		t.Error("pool should be exhausted after rotating through every key")
	}
}

func TestResolveOtherErrorSkipsRotation(t *testing.T) {
	fake := &fakeAPI{failAll: true}
	resolver, pool := newTestResolver(t, fake, []string{"k1", "k2"})
	resolver.extract = func(ctx context.Context, query, cookie string) (*TrackMetadata, error) {
		return &TrackMetadata{Title: "via fallback", VideoID: "dQw4w9WgXcQ"}, nil
	}

	meta, err := resolver.Resolve(context.Background(), ClassifyText("https://youtu.be/dQw4w9WgXcQ"))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Title != "via fallback" {
		t.Errorf("title = %q", meta.Title)
	}
	// A generic API failure must not burn a key.
	if key, _, _ := pool.Current(); key != "k1" {
		t.Errorf("cursor moved on a non-quota error, key = %q", key)
	}
}

func TestResolveTerminalFailure(t *testing.T) {
	fake := &fakeAPI{quotaKeys: map[string]bool{"k1": true}}
	resolver, _ := newTestResolver(t, fake, []string{"k1"})
	resolver.extract = func(ctx context.Context, query, cookie string) (*TrackMetadata, error) {
		return nil, errors.New("extractor is down")
	}

	_, err := resolver.Resolve(context.Background(), ClassifyText("anything"))
	if !errors.Is(err, ErrResolveFailed) {
		t.Fatalf("err = %v, want ErrResolveFailed", err)
	}
	if !errors.Is(err, ErrKeysExhausted) {
		t.Fatalf("err = %v, should record that every key was spent", err)
	}
}

func TestResolveNoKeysGoesStraightToFallback(t *testing.T) {
	resolver, _ := newTestResolver(t, &fakeAPI{}, nil)
	called := false
	resolver.extract = func(ctx context.Context, query, cookie string) (*TrackMetadata, error) {
		called = true
		if query != WatchBase+"dQw4w9WgXcQ" {
			t.Errorf("extraction query = %q, want canonical watch URL", query)
		}
		return &TrackMetadata{Title: "x", VideoID: "dQw4w9WgXcQ"}, nil
	}

	if _, err := resolver.Resolve(context.Background(), ClassifyText("https://youtu.be/dQw4w9WgXcQ")); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("fallback was not invoked")
	}
}
