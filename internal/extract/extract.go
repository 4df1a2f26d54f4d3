// Package extract turns uploaded documents into a single normalized text string.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Format is the declared format of an uploaded document.
type Format string

const (
	FormatPlainText   Format = "plain_text"
	FormatTabular     Format = "tabular"     // comma-separated values
	FormatSpreadsheet Format = "spreadsheet" // xlsx or legacy xls workbook
	FormatPDF         Format = "pdf"         // page-based document
)

// ErrUnsupportedFormat is returned when a file matches none of the accepted formats.
var ErrUnsupportedFormat = errors.New("unsupported file type, upload PDF, TXT, CSV or XLSX")

// Document is an uploaded artifact. It is not modified after creation.
type Document struct {
	Name   string
	Format Format
	Data   []byte
}

// DecodeError reports plain text that is not valid UTF-8.
type DecodeError struct {
	Offset int // byte offset of the first invalid sequence
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("text is not valid UTF-8 (first invalid byte at offset %d)", e.Offset)
}

// ExtractionError reports a parser failure for a specific format.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract %s document: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// formatRule matches a format by content type or file extension.
type formatRule struct {
	format     Format
	mediaTypes []string
	extensions []string
}

// formatRules are tried in order, each by type or extension, so a ".csv"
// upload labelled application/vnd.ms-excel is still read as CSV.
var formatRules = []formatRule{
	{FormatPDF, []string{"application/pdf"}, []string{".pdf"}},
	{FormatPlainText, []string{"text/plain"}, []string{".txt"}},
	{FormatTabular, []string{"text/csv"}, []string{".csv"}},
	{FormatSpreadsheet, []string{
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, []string{".xls", ".xlsx"}},
}

// DetectFormat resolves a document format from the upload content type
// and file extension.
func DetectFormat(filename, contentType string) (Format, error) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	ext := strings.ToLower(filepath.Ext(filename))

	for _, rule := range formatRules {
		if slices.Contains(rule.mediaTypes, mediaType) || slices.Contains(rule.extensions, ext) {
			return rule.format, nil
		}
	}
	return "", ErrUnsupportedFormat
}

// Extract converts a document into normalized text. It has no side effects
// and does not retry on failure.
func Extract(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch doc.Format {
	case FormatPlainText:
		return decodePlainText(doc.Data)
	case FormatTabular:
		rows, err := readCSV(doc.Data)
		if err != nil {
			return "", &ExtractionError{Format: doc.Format, Err: err}
		}
		return writeCSV(rows)
	case FormatSpreadsheet:
		rows, err := readSpreadsheet(doc.Data)
		if err != nil {
			return "", &ExtractionError{Format: doc.Format, Err: err}
		}
		return writeCSV(rows)
	case FormatPDF:
		text, err := readPDF(ctx, doc.Data)
		if err != nil {
			return "", &ExtractionError{Format: doc.Format, Err: err}
		}
		return text, nil
	default:
		return "", ErrUnsupportedFormat
	}
}
