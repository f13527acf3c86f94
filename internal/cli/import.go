package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notion2anki/internal/models"
	"notion2anki/internal/services"
)

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import flashcards from every ready document",
		Args:  cobra.NoArgs,
		RunE:  runImport,
	}
	addPipelineFlags(cmd.Flags())
	cmd.Flags().Bool("dry-run", false, "print extracted flashcards as JSON lines instead of adding them")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	var importer *services.ImportService
	summary := cmd.OutOrStdout()
	if dryRun {
		importer = a.importer(newPrintSink(cmd.OutOrStdout()), nil, "stdout")
		summary = cmd.ErrOrStderr()
	} else {
		importer = a.importer(a.sink(), a.runs, a.cfg.Sink)
	}

	run, err := importer.Run(ctx, func(step, message string, current, total int) {
		a.log.Debug("import progress",
			zap.String("step", step),
			zap.String("message", message),
			zap.Int("current", current),
			zap.Int("total", total),
		)
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Fprintf(summary, "Imported %d of %d flashcards from %d documents (%d failed)\n",
		run.CardsAdded, run.CardsFound, run.Documents, run.CardsFailed)
	for _, doc := range run.Results {
		if doc.Error.Valid {
			fmt.Fprintf(summary, "  %s: %s\n", docLabel(doc), doc.Error.String)
		}
	}
	return nil
}

func docLabel(doc models.RunDocument) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.DocumentID
}

// printSink writes each card as one JSON object per line.
type printSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newPrintSink(w io.Writer) *printSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &printSink{enc: enc}
}

func (p *printSink) AddCard(_ context.Context, card models.Flashcard) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(card)
}
