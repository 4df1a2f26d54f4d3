package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// pageSeparator joins the text of consecutive pages.
const pageSeparator = "\n\n"

// readPDF extracts text page by page. Pages without a text layer (scans)
// contribute an empty string.
func readPDF(ctx context.Context, data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return strings.TrimSpace(strings.Join(pages, pageSeparator)), nil
}
