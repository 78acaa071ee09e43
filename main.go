package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/avashisth/sangeet/src/assistant"
	"github.com/avashisth/sangeet/src/bot"
	"github.com/avashisth/sangeet/src/cache"
	"github.com/avashisth/sangeet/src/sys"
	"github.com/avashisth/sangeet/src/youtube"
)

const pidFile = ".bot.pid"

func main() {
	silent := flag.Bool("silent", false, "Disable all log output")
	flag.Parse()

	if *silent {
		sys.SetSilentMode(true)
	}

	takeover()

	pid := os.Getpid()
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		sys.LogWarn("Failed to write PID file: %v", err)
	}
	defer os.Remove(pidFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := run(ctx, pid); err != nil {
		sys.LogFatal("%v", err)
	}
}

// takeover terminates a previous instance recorded in the PID file, so
// restarting the binary never leaves two pollers on the same bot token.
func takeover() {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}
	oldPid, err := strconv.Atoi(string(data))
	if err != nil || oldPid == os.Getpid() {
		return
	}
	process, err := os.FindProcess(oldPid)
	if err != nil {
		return
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return // not running
	}

	sys.LogInfo("Killing running instance... (PID: %d)", oldPid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		sys.LogWarn("Failed to kill old instance: %v", err)
		return
	}
	// Give it up to 5 seconds to exit.
	for i := 0; i < 50; i++ {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	sys.LogInfo("Old instance terminated.")
}

func run(ctx context.Context, pid int) error {
	cfg, err := sys.LoadConfig()
	if err != nil {
		return fmt.Errorf("Failed to load config: %w", err)
	}

	store, err := cache.Open(cfg.DatabasePath, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("Failed to initialize cache: %w", err)
	}
	defer store.Close()
	store.StartJanitor(ctx, cfg.CacheSweep)

	keys := youtube.NewKeyPool(cfg.APIKeys)
	cookies := youtube.NewCookieJar(cfg.CookiesDir)
	resolver := youtube.NewResolver(youtube.NewDataAPI(cfg.ProxyURL), keys, cookies, cfg.ProxyURL)
	fetcher := youtube.NewFetcher(cfg.DownloadsDir, cfg.ProxyURL, cookies, cfg.MaxFetches)

	// Zero usable assistants with tokens configured is the one startup
	// failure treated as fatal.
	assistants := assistant.NewRegistry(cfg.AssistantTokens, cfg.RequireAssistantUsername, cfg.LoggerChatID)
	if err := assistants.Start(ctx); err != nil {
		return fmt.Errorf("Failed to start assistants: %w", err)
	}
	defer assistants.Stop()

	b, err := bot.New(cfg, resolver, fetcher, store, assistants)
	if err != nil {
		return fmt.Errorf("Failed to create bot: %w", err)
	}

	sys.LogInfo("%s is online! (PID: %d)", sys.GetProjectName(), pid)
	b.Run(ctx)
	sys.LogInfo("Shutting down...")

	return nil
}
