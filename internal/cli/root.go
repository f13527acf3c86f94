// Package cli wires configuration, sources and sinks into cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCommand builds the notion2anki command tree.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "notion2anki",
		Short: "Extract question/answer flashcards from notes and import them into Anki",
		Long: `notion2anki reads pages marked "Ready to Import" from a Notion database
(or markdown, text and PDF files from a local directory), finds lines starting
with question and answer markers such as "问题：" / "Answer:", and adds each
pair as a note through AnkiConnect or into a local SQLite card store.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("fence-only", false, "only accept markers inside ``` code fences")

	rootCmd.AddCommand(
		newImportCommand(),
		newExtractCommand(),
		newServeCommand(),
	)
	return rootCmd
}

// addPipelineFlags registers the flags shared by commands that build a
// source and a sink.
func addPipelineFlags(flags *pflag.FlagSet) {
	flags.String("source", "", "document source: notion or local")
	flags.String("sink", "", "card sink: anki or local")
	flags.String("dir", "", "directory read by the local source")
	flags.String("db", "", "path of the SQLite database")
	flags.String("deck", "", "Anki deck name")
	flags.String("model", "", "Anki note type")
}
