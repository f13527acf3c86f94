// Package localdocs reads flashcard documents from a directory on disk.
package localdocs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"notion2anki/internal/logger"
	"notion2anki/internal/models"
)

// Source lists markdown, text and PDF files in a directory. Document IDs are
// file paths.
type Source struct {
	dir string
	log *zap.Logger
}

func NewSource(dir string, log *zap.Logger) *Source {
	return &Source{dir: dir, log: logger.OrNop(log).Named("localdocs")}
}

// ListReadyDocuments returns supported files in the directory, sorted by name.
func (s *Source) ListReadyDocuments(ctx context.Context) ([]models.DocumentRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}

	var docs []models.DocumentRef
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		docs = append(docs, models.DocumentRef{
			ID:    filepath.Join(s.dir, entry.Name()),
			Title: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// GetBlocks reads the file at path and converts it into blocks.
func (s *Source) GetBlocks(ctx context.Context, path string) ([]models.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blocks, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	s.log.Debug("read document", zap.String("path", path), zap.Int("blocks", len(blocks)))
	return blocks, nil
}

// Supported reports whether a file name has an extension ReadFile understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt", ".pdf":
		return true
	}
	return false
}

// ReadFile converts a single file into blocks based on its extension.
func ReadFile(path string) ([]models.Block, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return ReadPDF(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch ext {
	case ".md", ".markdown":
		return ParseMarkdown(data), nil
	case ".txt":
		return ParseText(string(data)), nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// ParseText turns plain text into one paragraph per blank-line separated chunk.
func ParseText(text string) []models.Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []models.Block
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.Trim(chunk, "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		blocks = append(blocks, models.Text(models.BlockParagraph, chunk))
	}
	return blocks
}
