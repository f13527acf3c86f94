package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notion2anki/internal/anki"
	"notion2anki/internal/config"
	"notion2anki/internal/db"
	"notion2anki/internal/extract"
	"notion2anki/internal/localdocs"
	"notion2anki/internal/logger"
	"notion2anki/internal/notion"
	"notion2anki/internal/services"
)

// app holds the dependencies shared by a single command invocation.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	conn  *sql.DB
	runs  *services.RunService
	cards *services.CardStore
}

// loadConfig reads configuration with the command's flags taking precedence.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg.Debug), nil
}

// openApp loads and validates configuration and opens the database.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		conn:  conn,
		runs:  services.NewRunService(conn),
		cards: services.NewCardStore(conn, cfg.AnkiDeck, cfg.AnkiModel),
	}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = a.conn.Close()
}

func (a *app) source() services.DocumentSource {
	if a.cfg.Source == config.SourceLocal {
		return localdocs.NewSource(a.cfg.LocalDir, a.log)
	}
	return notion.NewClient(notion.Config{
		APIKey:         a.cfg.NotionKey,
		DatabaseID:     a.cfg.NotionDatabaseID,
		BaseURL:        a.cfg.NotionBaseURL,
		Version:        a.cfg.NotionVersion,
		StatusProperty: a.cfg.NotionStatusProperty,
		ReadyStatus:    a.cfg.NotionReadyStatus,
		Timeout:        a.cfg.HTTPTimeout,
	}, a.log)
}

func (a *app) sink() services.CardSink {
	if a.cfg.Sink == config.SinkLocal {
		return a.cards
	}
	return anki.NewClient(anki.Config{
		URL:        a.cfg.AnkiConnectURL,
		Deck:       a.cfg.AnkiDeck,
		Model:      a.cfg.AnkiModel,
		FrontField: a.cfg.AnkiFrontField,
		BackField:  a.cfg.AnkiBackField,
		Tags:       a.cfg.AnkiTags,
		Timeout:    a.cfg.HTTPTimeout,
	}, a.log)
}

// importer builds an import from the configured source into sink. runs may
// be nil to skip recording history.
func (a *app) importer(sink services.CardSink, runs *services.RunService, sinkName string) *services.ImportService {
	return services.NewImportService(a.source(), sink, runs, services.ImportOptions{
		SourceName: a.cfg.Source,
		SinkName:   sinkName,
		Extract:    a.extractOptions(),
	}, a.log)
}

func (a *app) extractOptions() extract.Options {
	return extract.Options{FenceOnly: a.cfg.FenceOnly}
}
