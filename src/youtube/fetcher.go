package youtube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	ytstream "github.com/kkdai/youtube/v2"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/semaphore"

	"github.com/avashisth/sangeet/src/sys"
)

// FetchMode selects what the fetcher materializes.
type FetchMode int

const (
	// AudioOnly extracts best audio and transcodes it to mp3.
	AudioOnly FetchMode = iota
	// VideoWithAudio fetches a capped-resolution combined stream.
	VideoWithAudio
	// FormatSpecific fetches an exact video format id plus best audio and
	// merges them locally.
	FormatSpecific
)

// FetchResult is the single return shape for every fetch. Remote means Path
// is a direct stream URL rather than a local file.
type FetchResult struct {
	Path   string
	Remote bool
}

// Fetcher materializes resolved tracks as local files or stream URLs. Every
// blocking download runs under a weighted semaphore so a burst of chats
// queues instead of forking an unbounded number of subprocesses.
type Fetcher struct {
	dir     string
	proxy   string
	cookies *CookieJar
	sem     *semaphore.Weighted

	// Seams for tests; production wiring uses yt-dlp, ffmpeg and the
	// stream client.
	run       func(ctx context.Context, flags []string, target string) (string, error)
	merge     func(ctx context.Context, videoPath, audioPath, outPath string) error
	streamURL func(ctx context.Context, videoID string) (string, error)
}

func NewFetcher(dir, proxy string, cookies *CookieJar, maxConcurrent int64) *Fetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	f := &Fetcher{
		dir:     dir,
		proxy:   proxy,
		cookies: cookies,
		sem:     semaphore.NewWeighted(maxConcurrent),
	}
	f.run = f.ytdlpDownload
	f.merge = ffmpegMerge
	f.streamURL = directAudioURL
	return f
}

// Fetch downloads the track in the requested mode. formatID is only
// meaningful for FormatSpecific. On a generic failure at most one narrower
// fallback is attempted (a direct audio stream URL); an explicitly
// unavailable format fails immediately with ErrFormatUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, meta *TrackMetadata, mode FetchMode, formatID string) (FetchResult, error) {
	if meta == nil || meta.VideoID == "" {
		return FetchResult{}, fmt.Errorf("%w: no target", ErrDownloadFailed)
	}
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return FetchResult{}, err
	}
	defer f.sem.Release(1)

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return FetchResult{}, fmt.Errorf("%w: creating %s: %v", ErrDownloadFailed, f.dir, err)
	}

	job := uuid.NewString()[:8]
	sys.LogYouTube("[job %s] fetching %s (%s, mode %d)", job, meta.VideoID, meta.Title, mode)

	switch mode {
	case VideoWithAudio:
		return f.fetchVideo(ctx, meta, job)
	case FormatSpecific:
		return f.fetchFormat(ctx, meta, formatID, job)
	default:
		return f.fetchAudio(ctx, meta, job)
	}
}

func (f *Fetcher) fetchAudio(ctx context.Context, meta *TrackMetadata, job string) (FetchResult, error) {
	flags := []string{
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
	}
	path, err := f.run(ctx, flags, meta.Link)
	if err == nil {
		return FetchResult{Path: path}, nil
	}
	sys.LogYouTube("[job %s] audio download failed: %v, trying direct stream", job, err)

	// The one allowed fallback: hand back a remote audio stream URL.
	streamURL, streamErr := f.streamURL(ctx, meta.VideoID)
	if streamErr != nil {
		return FetchResult{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return FetchResult{Path: streamURL, Remote: true}, nil
}

func (f *Fetcher) fetchVideo(ctx context.Context, meta *TrackMetadata, job string) (FetchResult, error) {
	// Prefer a premuxed stream so no merge step is needed.
	flags := []string{
		"-f", "best[height<=720][acodec!=none][vcodec!=none]/bestvideo[height<=720]+bestaudio/best",
		"--merge-output-format", "mp4",
	}
	path, err := f.run(ctx, flags, meta.Link)
	if err == nil {
		return FetchResult{Path: path}, nil
	}
	sys.LogYouTube("[job %s] video download failed: %v, trying audio only", job, err)

	// Narrower fallback: audio extraction without the video track.
	path, audioErr := f.run(ctx, []string{"-f", "bestaudio/best", "--extract-audio", "--audio-format", "mp3", "--audio-quality", "192K"}, meta.Link)
	if audioErr != nil {
		return FetchResult{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return FetchResult{Path: path}, nil
}

// fetchFormat downloads an exact video format plus best audio and merges
// them into one mp4. Intermediate artifacts are removed whether or not the
// merge succeeds.
func (f *Fetcher) fetchFormat(ctx context.Context, meta *TrackMetadata, formatID string, job string) (FetchResult, error) {
	if formatID == "" {
		return FetchResult{}, fmt.Errorf("%w: empty format id", ErrFormatUnavailable)
	}

	videoPath, err := f.run(ctx, []string{"-f", formatID, "--output-suffix", "video"}, meta.Link)
	if err != nil {
		if isFormatUnavailable(err) {
			return FetchResult{}, fmt.Errorf("%w: format %s for %s", ErrFormatUnavailable, formatID, meta.VideoID)
		}
		return FetchResult{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer os.Remove(videoPath)

	audioPath, err := f.run(ctx, []string{"-f", "140/bestaudio[ext=m4a]/bestaudio", "--output-suffix", "audio"}, meta.Link)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer os.Remove(audioPath)

	outPath := f.mergedPath(meta)
	if err := f.merge(ctx, videoPath, audioPath, outPath); err != nil {
		os.Remove(outPath)
		return FetchResult{}, fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	sys.LogYouTube("[job %s] merged %s", job, outPath)
	return FetchResult{Path: outPath}, nil
}

// mergedPath derives the merge output deterministically from title and id so
// concurrent jobs for different targets can never collide.
func (f *Fetcher) mergedPath(meta *TrackMetadata) string {
	return filepath.Join(f.dir, sanitizeTitle(meta.Title)+"_"+meta.VideoID+".mp4")
}

var unsafePathRe = regexp.MustCompile(`[^\w\s-]`)

func sanitizeTitle(title string) string {
	cleaned := unsafePathRe.ReplaceAllString(title, "")
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	if len(cleaned) > 60 {
		cleaned = cleaned[:60]
	}
	if cleaned == "" {
		cleaned = "track"
	}
	return cleaned
}

func isFormatUnavailable(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "requested format is not available")
}

// ytdlpDownload runs the actual extraction subprocess. The output template is
// id-derived, so distinct targets land on distinct paths without shared
// state; yt-dlp reports where the file ended up via after_move:filepath.
func (f *Fetcher) ytdlpDownload(ctx context.Context, flags []string, target string) (string, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()
	if f.proxy != "" {
		cmd.Proxy(f.proxy)
	}
	if cookie := f.cookies.Pick(); cookie != "" {
		cmd.Cookies(cookie)
	}

	outputSuffix := ""
	kept := flags[:0:0]
	for i := 0; i < len(flags); i++ {
		if flags[i] == "--output-suffix" && i+1 < len(flags) {
			outputSuffix = "." + flags[i+1]
			i++
			continue
		}
		kept = append(kept, flags[i])
	}

	args := append(kept,
		"--no-playlist",
		"--no-check-certificates",
		"--geo-bypass",
		"--socket-timeout", "30",
		"--retries", "3",
		"--fragment-retries", "3",
		"-o", filepath.Join(f.dir, "%(id)s"+outputSuffix+".%(ext)s"),
		"--print", "after_move:filepath",
		"--no-simulate",
		target,
	)

	res, err := cmd.IgnoreConfig().Run(ctx, args...)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(res.Stderr))
		}
		return "", err
	}

	path := lastLine(res.Stdout)
	if path == "" {
		return "", errors.New("yt-dlp reported no output path")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("downloaded file missing at %s", path)
	}
	return path, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// ffmpegMerge muxes a video-only and an audio-only stream into one mp4
// container without re-encoding.
func ffmpegMerge(ctx context.Context, videoPath, audioPath, outPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg merge failed: %w, output: %s", err, string(output))
	}
	return nil
}

// directAudioURL resolves a playable remote stream URL without downloading,
// used when the extraction download path is blocked.
func directAudioURL(ctx context.Context, videoID string) (string, error) {
	client := ytstream.Client{}
	video, err := client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", err
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", errors.New("no audio-capable formats")
	}
	streamURL, err := client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", err
	}
	return streamURL, nil
}
