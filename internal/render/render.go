// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render builds the HTML pages of the highlighting UI: the upload
// panel with paper statistics, the sentence table with its colour cues, and
// the summary of accepted sentences.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/pdiddy/flavia/internal/annotation"
	"github.com/pdiddy/flavia/internal/reconcile"
	"github.com/pdiddy/flavia/internal/session"
	"github.com/pdiddy/flavia/pkg/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Colour cues for the three relevance values.
const (
	CueNeutral  = "white"
	CuePositive = "lightgreen"
	CueNegative = "lightpink"
)

// Cue returns the row background for r.
func Cue(r types.Relevance) string {
	switch r {
	case types.RelevanceAccepted:
		return CuePositive
	case types.RelevanceRejected:
		return CueNegative
	default:
		return CueNeutral
	}
}

// Row is one sentence as the UI shows it. Next is the value a click on the
// row sends.
type Row struct {
	Index int             `json:"index"`
	Text  string          `json:"text"`
	Value types.Relevance `json:"value"`
	Cue   string          `json:"cue"`
	Next  types.Relevance `json:"next"`
}

// Rows returns one Row per sentence of doc. Sentences beyond the end of v
// show as unset.
func Rows(doc *types.Document, v annotation.Vector) []Row {
	if doc == nil {
		return nil
	}
	rows := make([]Row, len(doc.Sentences))
	for i, s := range doc.Sentences {
		value := v.At(i)
		rows[i] = Row{Index: i, Text: s, Value: value, Cue: Cue(value), Next: reconcile.Next(i, value).Value}
	}
	return rows
}

// Page is the data behind the session page.
type Page struct {
	SessionID  string
	Filename   string
	Query      string
	Document   *types.Document
	Characters int
	Sentences  int
	Rows       []Row
	Accepted   []string
	Counts     annotation.Counts
	Error      string
}

// NewPage collects what the session page shows from st.
func NewPage(st *session.State) Page {
	p := Page{
		SessionID: st.ID,
		Filename:  st.Filename,
		Query:     st.Query,
		Document:  st.Document,
	}
	if !st.HasDocument() {
		return p
	}
	p.Characters = st.Document.Characters()
	p.Sentences = st.Document.Len()
	p.Rows = Rows(st.Document, st.Vector)
	p.Counts = annotation.Tally(st.Vector)
	for _, r := range p.Rows {
		if r.Value == types.RelevanceAccepted {
			p.Accepted = append(p.Accepted, r.Text)
		}
	}
	return p
}

// Renderer executes the embedded page templates.
type Renderer struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"commas": Commas,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Index writes the landing page.
func (r *Renderer) Index(w io.Writer) error {
	return r.templates.ExecuteTemplate(w, "index.html", nil)
}

// Session writes the page of one session.
func (r *Renderer) Session(w io.Writer, p Page) error {
	return r.templates.ExecuteTemplate(w, "session.html", p)
}

// Commas formats n with thousands separators, as in 12,345.
func Commas(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3+1)
	if neg {
		out = append(out, '-')
	}
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
