// Package render turns typed content blocks into line-oriented text.
package render

import (
	"strings"

	"notion2anki/internal/models"
)

// Fence opens and closes a code region in rendered text.
const Fence = "```"

// Flatten concatenates the plain text of every run, in order, with no separators.
func Flatten(runs []models.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

// Render maps each block to its text lines. Every block produces output;
// unknown block types emit a single blank line.
func Render(blocks []models.Block) string {
	var b strings.Builder
	for _, block := range blocks {
		writeBlock(&b, block)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, block models.Block) {
	text := Flatten(block.RichText)
	switch block.Type {
	case models.BlockHeading1:
		b.WriteString("# " + text + "\n\n")
	case models.BlockHeading2:
		b.WriteString("## " + text + "\n\n")
	case models.BlockHeading3:
		b.WriteString("### " + text + "\n\n")
	case models.BlockParagraph:
		b.WriteString(text + "\n\n")
	case models.BlockBulletItem:
		b.WriteString("- " + text + "\n")
	case models.BlockCode:
		b.WriteString(Fence + block.Language + "\n")
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(Fence + "\n\n")
	default:
		b.WriteString("\n")
	}
}
