package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notion2anki/internal/extract"
	"notion2anki/internal/logger"
	"notion2anki/internal/models"
	"notion2anki/internal/render"
)

// ProgressCallback is called while an import runs to report progress.
type ProgressCallback func(step, message string, current, total int)

// ImportOptions configures an ImportService.
type ImportOptions struct {
	SourceName string
	SinkName   string
	Extract    extract.Options
}

// ImportService moves flashcards from a document source into a card sink.
// Documents are processed one after another and a failure in one document
// does not stop the others.
type ImportService struct {
	source  DocumentSource
	sink    CardSink
	runs    *RunService
	emitter *Emitter
	opts    ImportOptions
	log     *zap.Logger
}

// NewImportService wires an import. runs may be nil, in which case run
// history is not persisted.
func NewImportService(source DocumentSource, sink CardSink, runs *RunService, opts ImportOptions, log *zap.Logger) *ImportService {
	log = logger.OrNop(log)
	return &ImportService{
		source:  source,
		sink:    sink,
		runs:    runs,
		emitter: NewEmitter(log),
		opts:    opts,
		log:     log,
	}
}

// Extract renders blocks and parses flashcards out of them without submitting anything.
func (s *ImportService) Extract(blocks []models.Block) []models.Flashcard {
	return extract.Parse(render.Render(blocks), s.opts.Extract)
}

// Run imports every ready document. The returned error is non-nil only when
// the document listing fails or ctx is cancelled; per-document failures are
// recorded on the run.
func (s *ImportService) Run(ctx context.Context, progress ProgressCallback) (*models.ImportRun, error) {
	if progress == nil {
		progress = func(string, string, int, int) {}
	}

	run, err := s.start(ctx)
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("run", run.ID))

	progress("list", "Listing ready documents", 0, 0)
	docs, err := s.source.ListReadyDocuments(ctx)
	if err != nil {
		err = fmt.Errorf("list ready documents: %w", err)
		s.finish(ctx, run, err)
		return run, err
	}
	run.Documents = len(docs)
	log.Info("found documents to import", zap.Int("count", len(docs)))

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, run, err)
			return run, err
		}
		progress("document", fmt.Sprintf("Processing %s", docName(doc)), i, len(docs))

		result := s.importDocument(ctx, log, run.ID, doc)
		run.Results = append(run.Results, result)
		run.CardsFound += result.CardsFound
		run.CardsAdded += result.CardsAdded
		run.CardsFailed += result.CardsFailed
	}

	progress("complete", fmt.Sprintf("Imported %d of %d flashcards", run.CardsAdded, run.CardsFound), len(docs), len(docs))
	s.finish(ctx, run, nil)
	log.Info("import finished",
		zap.Int("documents", run.Documents),
		zap.Int("found", run.CardsFound),
		zap.Int("added", run.CardsAdded),
		zap.Int("failed", run.CardsFailed),
	)
	return run, nil
}

func (s *ImportService) importDocument(ctx context.Context, log *zap.Logger, runID string, doc models.DocumentRef) models.RunDocument {
	result := models.RunDocument{RunID: runID, DocumentID: doc.ID, Title: doc.Title}
	log = log.With(zap.String("document", doc.ID))

	blocks, err := s.source.GetBlocks(ctx, doc.ID)
	if err != nil {
		log.Error("fetch document failed", zap.Error(err))
		result.Error = sql.NullString{String: err.Error(), Valid: true}
		return result
	}

	cards := s.Extract(blocks)
	result.CardsFound = len(cards)

	sink := s.sink
	if scoped, ok := sink.(SourceScoped); ok {
		sink = scoped.WithSource(doc.ID)
	}
	emitted := s.emitter.Emit(ctx, sink, cards)
	result.CardsAdded = emitted.Succeeded
	result.CardsFailed = emitted.Failed

	log.Debug("document imported", zap.Int("blocks", len(blocks)), zap.Int("cards", len(cards)), zap.Int("added", emitted.Succeeded))
	return result
}

func (s *ImportService) start(ctx context.Context) (*models.ImportRun, error) {
	if s.runs == nil {
		return &models.ImportRun{
			ID:        uuid.NewString(),
			Source:    s.opts.SourceName,
			Sink:      s.opts.SinkName,
			Status:    models.RunRunning,
			StartedAt: time.Now().UTC(),
		}, nil
	}
	run, err := s.runs.Start(ctx, s.opts.SourceName, s.opts.SinkName)
	if err != nil {
		return nil, fmt.Errorf("record run start: %w", err)
	}
	return run, nil
}

func (s *ImportService) finish(ctx context.Context, run *models.ImportRun, runErr error) {
	run.Status = models.RunComplete
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = sql.NullString{String: runErr.Error(), Valid: true}
	}
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	if s.runs == nil {
		return
	}
	if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		s.log.Error("record run result failed", zap.String("run", run.ID), zap.Error(err))
	}
}

func docName(doc models.DocumentRef) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.ID
}
