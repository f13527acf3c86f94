package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"notion2anki/internal/extract"
	"notion2anki/internal/localdocs"
	"notion2anki/internal/models"
	"notion2anki/internal/render"
)

func newExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the flashcards found in a markdown, text or PDF file",
		Long: `Print the flashcards found in a file as a JSON array. Use "-" to read
plain text from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var blocks []models.Block
	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		blocks = localdocs.ParseText(string(data))
	} else {
		blocks, err = localdocs.ReadFile(args[0])
		if err != nil {
			return err
		}
	}

	cards := extract.Parse(render.Render(blocks), extract.Options{FenceOnly: cfg.FenceOnly})
	if cards == nil {
		cards = []models.Flashcard{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(cards)
}
