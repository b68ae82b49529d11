package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrValidation marks client mistakes (unsupported file type, bad input) that
// the HTTP layer maps to 400.
var ErrValidation = errors.New("validation error")

// Upload is a single law document submitted through the API, with the
// citation fields supplied by the caller.
type Upload struct {
	FileName  string
	LawName   string
	LawNumber string
	Year      string
	Data      []byte
}

// CorpusEntry is one record of the batch-ingestion JSON corpus.
type CorpusEntry struct {
	FileName string `json:"file_name"`
	Text     string `json:"text"`
}

// LoadText extracts plain text from an uploaded file. .txt content is used as
// is; .pdf goes through the PDF text extractor. Anything else fails the
// extension gate.
func LoadText(filename string, data []byte) (string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".txt"):
		return string(data), nil
	case strings.HasSuffix(lower, ".pdf"):
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("loading %s: %w", filename, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: only PDF and TXT files supported", ErrValidation)
	}
}

// extractPDF pulls the plain text out of a PDF upload. A file the parser
// cannot read is a client mistake, so every failure carries ErrValidation.
// The parser panics on some corrupt inputs; the recover keeps those on the
// same path.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed PDF: %v", ErrValidation, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: malformed PDF: %v", ErrValidation, err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extracting PDF text: %v", ErrValidation, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("%w: extracting PDF text: %v", ErrValidation, err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", fmt.Errorf("%w: PDF contains no extractable text", ErrValidation)
	}
	return buf.String(), nil
}

// LoadCorpus reads a JSON array of {file_name, text} records.
func LoadCorpus(path string) ([]CorpusEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	var entries []CorpusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	return entries, nil
}
