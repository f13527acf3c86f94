package localdocs

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"notion2anki/internal/models"
)

// ReadPDF extracts the plain text of every page as one paragraph per page.
// Pages without text still produce a typeless block so page order is kept.
func ReadPDF(path string) ([]models.Block, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	blocks := make([]models.Block, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			blocks = append(blocks, models.Block{})
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageNum, err)
		}
		if strings.TrimSpace(content) == "" {
			blocks = append(blocks, models.Block{})
			continue
		}
		blocks = append(blocks, models.Text(models.BlockParagraph, content))
	}
	return blocks, nil
}
