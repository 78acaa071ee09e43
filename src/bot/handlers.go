package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avashisth/sangeet/src/assistant"
	"github.com/avashisth/sangeet/src/cache"
	"github.com/avashisth/sangeet/src/sys"
	"github.com/avashisth/sangeet/src/youtube"
)

// Bot glues the Telegram update stream to the resolution pipeline. Each
// update is handled on its own goroutine behind a semaphore so one slow
// download never blocks the poll loop.
type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        *sys.Config
	resolver   *youtube.Resolver
	fetcher    *youtube.Fetcher
	store      *cache.Store
	assistants *assistant.Registry
	sem        chan struct{}
}

func New(cfg *sys.Config, resolver *youtube.Resolver, fetcher *youtube.Fetcher, store *cache.Store, assistants *assistant.Registry) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("authorizing bot: %w", err)
	}
	sys.LogBot("Authorized as @%s", api.Self.UserName)
	return &Bot{
		api:        api,
		cfg:        cfg,
		resolver:   resolver,
		fetcher:    fetcher,
		store:      store,
		assistants: assistants,
		sem:        make(chan struct{}, 16),
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			go func() {
				b.sem <- struct{}{}
				defer func() { <-b.sem }()
				b.handle(ctx, msg)
			}()
		}
	}
}

func (b *Bot) handle(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}
	switch message.Command() {
	case "start", "help":
		b.reply(message, "Send /play <song or link> to queue a track, /song to download one, /search to browse.")
	case "play":
		b.handlePlay(ctx, message, false)
	case "vplay":
		b.handlePlay(ctx, message, true)
	case "song":
		b.handleSong(ctx, message)
	case "search":
		b.handleSearch(ctx, message)
	}
}

// classifyRequest builds the pipeline query from command arguments, falling
// back to entity scanning over the message and its reply.
func (b *Bot) classifyRequest(message *tgbotapi.Message) *youtube.TrackQuery {
	if link := youtube.ExtractURL(message); link != "" {
		return &youtube.TrackQuery{Raw: link, Kind: youtube.DirectLink, Value: link}
	}
	if args := strings.TrimSpace(message.CommandArguments()); args != "" {
		return youtube.ClassifyText(args)
	}
	return nil
}

// resolveRequest runs classification and resolution, replying on failure.
// The returned metadata is nil when the caller should stop.
func (b *Bot) resolveRequest(ctx context.Context, message *tgbotapi.Message) *youtube.TrackMetadata {
	query := b.classifyRequest(message)
	if query == nil {
		b.reply(message, "Give me a song name or a link, or reply to a message containing one.")
		return nil
	}

	meta, err := b.resolver.Resolve(ctx, query)
	if err != nil {
		sys.LogBot("Resolution failed for %q: %v", query.Raw, err)
		b.reply(message, "Could not resolve that track. Try a different query.")
		return nil
	}

	if meta.DurationSec > b.cfg.DurationLimit() {
		b.reply(message, fmt.Sprintf("%s is %s long, over the %d minute limit.", meta.Title, meta.DurationLabel, b.cfg.DurationLimitMin))
		return nil
	}
	return meta
}

func (b *Bot) handlePlay(ctx context.Context, message *tgbotapi.Message, video bool) {
	meta := b.resolveRequest(ctx, message)
	if meta == nil {
		return
	}

	helper := b.assistants.Pick()
	if helper == nil {
		b.reply(message, "No assistant is available to join the voice chat.")
		return
	}

	mode := youtube.AudioOnly
	if video || b.cfg.VideoFirst {
		mode = youtube.VideoWithAudio
	}

	result, err := b.fetchCached(ctx, meta, mode)
	if err != nil {
		b.reply(message, "Could not fetch media for "+meta.Title+".")
		return
	}

	source := result.Path
	if result.Remote {
		source = "a direct stream"
	}
	sys.LogBot("Queued %s via assistant %d (%s)", meta.VideoID, helper.Num, source)
	b.reply(message, fmt.Sprintf("Playing %s [%s]\n%s", meta.Title, meta.DurationLabel, meta.Link))
}

func (b *Bot) handleSong(ctx context.Context, message *tgbotapi.Message) {
	meta := b.resolveRequest(ctx, message)
	if meta == nil {
		return
	}

	result, err := b.fetchCached(ctx, meta, youtube.AudioOnly)
	if err != nil || result.Remote {
		b.reply(message, "Could not fetch media for "+meta.Title+".")
		return
	}

	audio := tgbotapi.NewAudio(message.Chat.ID, tgbotapi.FilePath(result.Path))
	audio.Title = meta.Title
	audio.Duration = meta.DurationSec
	audio.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(audio); err != nil {
		sys.LogBot("Sending audio failed: %v", err)
		b.reply(message, "Downloaded the track but could not upload it here.")
	}
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	query := strings.TrimSpace(message.CommandArguments())
	if query == "" {
		b.reply(message, "Usage: /search <song name>")
		return
	}

	results := youtube.SearchTracks(ctx, query, 8)
	if len(results) == 0 {
		b.reply(message, "No results for "+query+".")
		return
	}

	var sb strings.Builder
	for i, r := range results {
		line := r.Title
		if r.Artist != "" {
			line += " - " + r.Artist
		}
		if r.Duration > 0 {
			line += " [" + youtube.FormatSeconds(r.Duration) + "]"
		}
		fmt.Fprintf(&sb, "%d. %s\n%s%s\n", i+1, line, youtube.WatchBase, r.VideoID)
	}
	b.reply(message, sb.String())
}

// fetchCached consults the download cache before invoking the fetcher and
// records local results afterwards. Remote stream URLs are never cached;
// they expire upstream.
func (b *Bot) fetchCached(ctx context.Context, meta *youtube.TrackMetadata, mode youtube.FetchMode) (youtube.FetchResult, error) {
	if mode == youtube.AudioOnly {
		if path, ok := b.store.Lookup(meta.VideoID); ok {
			sys.LogCache("Hit for %s", meta.VideoID)
			return youtube.FetchResult{Path: path}, nil
		}
	}

	result, err := b.fetcher.Fetch(ctx, meta, mode, "")
	if err != nil {
		return youtube.FetchResult{}, err
	}
	if mode == youtube.AudioOnly && !result.Remote {
		if err := b.store.Put(meta.VideoID, result.Path); err != nil {
			sys.LogCache("Failed to record %s: %v", meta.VideoID, err)
		}
	}
	return result, nil
}

func (b *Bot) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		sys.LogBot("Reply failed in chat %d: %v", message.Chat.ID, err)
	}
}
