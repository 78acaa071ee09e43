package sys

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every static setting the bot reads. It is resolved once at
// startup and passed by reference; nothing mutates it afterwards.
type Config struct {
	BotToken        string   `envconfig:"BOT_TOKEN"`
	AssistantTokens []string `envconfig:"ASSISTANT_TOKENS"`

	APIKeys  []string `envconfig:"YOUTUBE_API_KEYS"`
	ProxyURL string   `envconfig:"YOUTUBE_PROXY"`

	DownloadsDir string `envconfig:"DOWNLOADS_DIR" default:"downloads"`
	CookiesDir   string `envconfig:"COOKIES_DIR" default:"cookies"`
	DatabasePath string `envconfig:"DATABASE_PATH"`

	// Max track length in minutes. Anything longer is refused before fetch.
	DurationLimitMin int `envconfig:"DURATION_LIMIT" default:"300"`

	MaxFetches int64 `envconfig:"MAX_FETCHES" default:"4"`

	CacheTTL   time.Duration `envconfig:"CACHE_DURATION" default:"24h"`
	CacheSweep time.Duration `envconfig:"CACHE_SLEEP" default:"1h"`

	// Chat that receives assistant start reports. Zero disables reporting.
	LoggerChatID int64 `envconfig:"LOGGER_ID"`

	// Whether an assistant without a username is refused or merely warned
	// about. The upstream variants disagreed, so it is a policy knob.
	RequireAssistantUsername bool `envconfig:"REQUIRE_ASSISTANT_USERNAME"`

	// Try the capped-resolution video stream before falling back to audio
	// extraction, instead of the other way around.
	VideoFirst bool `envconfig:"VIDEO_FIRST"`

	Silent bool `envconfig:"SILENT"`
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.DatabasePath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		cfg.DatabasePath = filepath.Join(folder, GetProjectName()+".db")
	}

	for i := range cfg.APIKeys {
		cfg.APIKeys[i] = strings.TrimSpace(cfg.APIKeys[i])
	}
	for i := range cfg.AssistantTokens {
		cfg.AssistantTokens[i] = strings.TrimSpace(cfg.AssistantTokens[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is not set")
	}
	if c.DurationLimitMin <= 0 {
		return fmt.Errorf("DURATION_LIMIT must be positive, got %d", c.DurationLimitMin)
	}
	if c.MaxFetches <= 0 {
		return fmt.Errorf("MAX_FETCHES must be positive, got %d", c.MaxFetches)
	}
	return nil
}

// DurationLimit returns the track length cap in seconds.
func (c *Config) DurationLimit() int {
	return c.DurationLimitMin * 60
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "sangeet"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
