package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	SourceNotion = "notion"
	SourceLocal  = "local"

	SinkAnki  = "anki"
	SinkLocal = "local"
)

// Config stores runtime configuration loaded from the environment and flags.
type Config struct {
	NotionKey            string
	NotionDatabaseID     string
	NotionBaseURL        string
	NotionVersion        string
	NotionStatusProperty string
	NotionReadyStatus    string

	AnkiConnectURL string
	AnkiDeck       string
	AnkiModel      string
	AnkiFrontField string
	AnkiBackField  string
	AnkiTags       []string

	FenceOnly   bool
	Source      string
	Sink        string
	LocalDir    string
	Database    string
	Port        string
	Debug       bool
	HTTPTimeout time.Duration
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"fence-only": "fence_only",
	"source":     "source",
	"sink":       "sink",
	"dir":        "local_dir",
	"db":         "database_path",
	"port":       "port",
	"debug":      "debug",
	"deck":       "anki_deck",
	"model":      "anki_model",
}

var defaults = map[string]any{
	"notion_base_url":        "https://api.notion.com/v1",
	"notion_version":         "2022-06-28",
	"notion_status_property": "Status",
	"notion_ready_status":    "Ready to Import",
	"anki_connect_url":       "http://localhost:8765",
	"anki_deck":              "Notion Import",
	"anki_model":             "Basic",
	"anki_front_field":       "Front",
	"anki_back_field":        "Back",
	"anki_tags":              "",
	"fence_only":             false,
	"source":                 SourceNotion,
	"sink":                   SinkAnki,
	"local_dir":              "./notes",
	"database_path":          "./data/notion2anki.db",
	"port":                   "8080",
	"debug":                  false,
	"http_timeout":           "30s",
}

// Load reads configuration from .env, the environment and any flags that were
// set on the command line, in increasing order of precedence.
func Load(flags *pflag.FlagSet) (Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg := Config{
		NotionKey:            v.GetString("notion_api_key"),
		NotionDatabaseID:     v.GetString("notion_database_id"),
		NotionBaseURL:        strings.TrimRight(v.GetString("notion_base_url"), "/"),
		NotionVersion:        v.GetString("notion_version"),
		NotionStatusProperty: v.GetString("notion_status_property"),
		NotionReadyStatus:    v.GetString("notion_ready_status"),
		AnkiConnectURL:       v.GetString("anki_connect_url"),
		AnkiDeck:             v.GetString("anki_deck"),
		AnkiModel:            v.GetString("anki_model"),
		AnkiFrontField:       v.GetString("anki_front_field"),
		AnkiBackField:        v.GetString("anki_back_field"),
		AnkiTags:             splitList(v.GetString("anki_tags")),
		FenceOnly:            v.GetBool("fence_only"),
		Source:               strings.ToLower(v.GetString("source")),
		Sink:                 strings.ToLower(v.GetString("sink")),
		LocalDir:             v.GetString("local_dir"),
		Database:             v.GetString("database_path"),
		Port:                 v.GetString("port"),
		Debug:                v.GetBool("debug"),
		HTTPTimeout:          v.GetDuration("http_timeout"),
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure database dir %s: %w", cfg.Database, err)
	}
	return cfg, nil
}

// Validate reports settings the selected source and sink cannot run without.
func (c Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceNotion:
		if c.NotionKey == "" {
			errs = append(errs, errors.New("NOTION_API_KEY must be set"))
		}
		if c.NotionDatabaseID == "" {
			errs = append(errs, errors.New("NOTION_DATABASE_ID must be set"))
		}
	case SourceLocal:
		if c.LocalDir == "" {
			errs = append(errs, errors.New("LOCAL_DIR must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	switch c.Sink {
	case SinkAnki:
		if c.AnkiConnectURL == "" {
			errs = append(errs, errors.New("ANKI_CONNECT_URL must be set"))
		}
	case SinkLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown sink %q", c.Sink))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
