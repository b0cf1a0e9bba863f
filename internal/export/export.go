// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export projects a document and its annotation vector into the
// downloadable summaries: accepted sentences as text, judged sentences as
// CSV, and the same rows with document metadata as YAML or JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/pkg/types"
)

var (
	// ErrEmptyExport is returned alongside an empty-content File when there
	// is no document or nothing to export. Callers still serve the file.
	ErrEmptyExport = errors.New("nothing to export")

	// ErrMisaligned is returned when the vector and the document disagree
	// on the number of sentences.
	ErrMisaligned = errors.New("annotation vector does not match document")

	// ErrFormat is returned for an unknown export format.
	ErrFormat = errors.New("unsupported export format")
)

// Format selects the export serialization.
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// csvHeader is the first CSV record.
var csvHeader = []string{"sentence", "text", "relevant"}

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w %q: use txt, csv, yaml, or json", ErrFormat, s)
}

// Filename returns the download name for f.
func (f Format) Filename() string {
	return "summary." + string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	case FormatJSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Row is one judged sentence.
type Row struct {
	Index int             `json:"sentence" yaml:"sentence"`
	Text  string          `json:"text" yaml:"text"`
	Value types.Relevance `json:"relevant" yaml:"relevant"`
}

// Summary is the YAML/JSON export document.
type Summary struct {
	DocumentID string            `json:"document_id" yaml:"document_id"`
	Filename   string            `json:"filename" yaml:"filename"`
	Query      string            `json:"query,omitempty" yaml:"query,omitempty"`
	Sentences  int               `json:"sentences" yaml:"sentences"`
	Counts     annotation.Counts `json:"counts" yaml:"counts"`
	Rows       []Row             `json:"rows" yaml:"rows"`
}

// File is a download: its name, MIME type, and bytes.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

func checkAligned(doc *types.Document, v annotation.Vector) error {
	if doc.Len() != len(v) {
		return fmt.Errorf("%w: %d sentences, %d annotations", ErrMisaligned, doc.Len(), len(v))
	}
	return nil
}

// Text joins the accepted sentences in index order with a blank line
// between them. Rejected and unset sentences are left out.
func Text(doc *types.Document, v annotation.Vector) (string, error) {
	if err := checkAligned(doc, v); err != nil {
		return "", err
	}
	var accepted []string
	for _, e := range annotation.Read(v) {
		if e.Value == types.RelevanceAccepted {
			accepted = append(accepted, doc.Sentences[e.Index])
		}
	}
	return strings.Join(accepted, "\n\n"), nil
}

// Rows lists every sentence that is not unset, accepted and rejected alike.
func Rows(doc *types.Document, v annotation.Vector) ([]Row, error) {
	if err := checkAligned(doc, v); err != nil {
		return nil, err
	}
	entries := annotation.Read(v)
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{Index: e.Index, Text: doc.Sentences[e.Index], Value: e.Value})
	}
	return rows, nil
}

// CSV writes the header record "sentence,text,relevant" followed by one
// record per judged sentence: its zero-based index in the document, its
// text, and its value. The sentence index is the first column; no separate
// row-number column precedes it.
func CSV(doc *types.Document, v annotation.Vector) ([]byte, error) {
	rows, err := Rows(doc, v)
	if err != nil {
		return nil, err
	}
	return encodeCSV(rows)
}

func encodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write([]string{strconv.Itoa(r.Index), r.Text, string(r.Value)}); err != nil {
			return nil, fmt.Errorf("writing CSV row %d: %w", r.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildSummary assembles the YAML/JSON export document.
func BuildSummary(doc *types.Document, v annotation.Vector, query string) (Summary, error) {
	rows, err := Rows(doc, v)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Query:      query,
		Sentences:  doc.Len(),
		Counts:     annotation.Tally(v),
		Rows:       rows,
	}, nil
}

// Render produces the download for format. With no document, or when the
// projection for format is empty, it returns a File with empty content and
// ErrEmptyExport.
func Render(format Format, doc *types.Document, v annotation.Vector, query string) (File, error) {
	switch format {
	case FormatText, FormatCSV, FormatYAML, FormatJSON:
	default:
		return File{}, fmt.Errorf("%w %q", ErrFormat, format)
	}

	file := File{Name: format.Filename(), ContentType: format.ContentType()}
	if doc == nil || v == nil {
		return file, ErrEmptyExport
	}

	summary, err := BuildSummary(doc, v, query)
	if err != nil {
		return File{}, err
	}
	if summary.Counts.Accepted == 0 && (format == FormatText || len(summary.Rows) == 0) {
		return file, ErrEmptyExport
	}

	switch format {
	case FormatText:
		var text string
		text, err = Text(doc, v)
		file.Content = []byte(text)
	case FormatCSV:
		file.Content, err = encodeCSV(summary.Rows)
	case FormatYAML:
		file.Content, err = yaml.Marshal(&summary)
	case FormatJSON:
		file.Content, err = json.MarshalIndent(&summary, "", "  ")
	}
	if err != nil {
		return File{}, fmt.Errorf("encoding %s export: %w", format, err)
	}
	return file, nil
}
