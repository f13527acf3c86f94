package localdocs

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"notion2anki/internal/models"
)

// ParseMarkdown maps the top-level markdown structure onto blocks: headings
// up to level 3, paragraphs, list items, and code blocks. Deeper headings read
// as paragraphs; everything else becomes a block of an unhandled type.
func ParseMarkdown(source []byte) []models.Block {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var blocks []models.Block
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blocks = appendNode(blocks, node, source)
	}
	return blocks
}

func appendNode(blocks []models.Block, node ast.Node, source []byte) []models.Block {
	switch n := node.(type) {
	case *ast.Heading:
		switch n.Level {
		case 1:
			return append(blocks, models.Text(models.BlockHeading1, lineText(n, source)))
		case 2:
			return append(blocks, models.Text(models.BlockHeading2, lineText(n, source)))
		case 3:
			return append(blocks, models.Text(models.BlockHeading3, lineText(n, source)))
		}
		return append(blocks, models.Text(models.BlockParagraph, lineText(n, source)))
	case *ast.Paragraph, *ast.TextBlock:
		return append(blocks, models.Text(models.BlockParagraph, lineText(n, source)))
	case *ast.List:
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			blocks = appendListItem(blocks, item, source)
		}
		return blocks
	case *ast.FencedCodeBlock:
		return append(blocks, models.Block{
			Type:     models.BlockCode,
			Language: string(n.Language(source)),
			RichText: []models.RichText{{PlainText: rawText(n, source)}},
		})
	case *ast.CodeBlock:
		return append(blocks, models.Block{
			Type:     models.BlockCode,
			RichText: []models.RichText{{PlainText: rawText(n, source)}},
		})
	default:
		return append(blocks, models.Block{Type: models.BlockType(strings.ToLower(node.Kind().String()))})
	}
}

// appendListItem emits the item's own text as a bullet and flattens nested
// lists into further bullets.
func appendListItem(blocks []models.Block, item ast.Node, source []byte) []models.Block {
	var parts []string
	var nested []ast.Node
	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		if _, ok := child.(*ast.List); ok {
			nested = append(nested, child)
			continue
		}
		if child.Type() == ast.TypeBlock && child.Lines().Len() > 0 {
			parts = append(parts, lineText(child, source))
		}
	}
	blocks = append(blocks, models.Text(models.BlockBulletItem, strings.Join(parts, "\n")))
	for _, list := range nested {
		blocks = appendNode(blocks, list, source)
	}
	return blocks
}

// lineText joins the node's source lines with single line breaks.
func lineText(n ast.Node, source []byte) string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, string(bytes.TrimRight(seg.Value(source), "\r\n")))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// rawText returns code block lines verbatim without the final line break.
func rawText(n ast.Node, source []byte) string {
	var b bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\r\n")
}
