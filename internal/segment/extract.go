// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"rsc.io/pdf"

	"github.com/pdiddy/flavia/internal/container"
)

const (
	// lineTolerance is the fraction of the font size two text runs may
	// differ vertically and still sit on the same line.
	lineTolerance = 0.5
	// wordGap is the fraction of the font size of horizontal space that
	// separates two words.
	wordGap = 0.15
	// tjSpace is the TJ adjustment, in thousandths of an em, below which a
	// gap between two strings reads as a word break.
	tjSpace = -200
)

// NativeExtractor reads PDF text in-process with rsc.io/pdf.
type NativeExtractor struct{}

func (NativeExtractor) Name() string { return "native" }

// Extract walks every page and rebuilds lines from positioned text runs.
// rsc.io/pdf panics on some malformed streams; those panics come back as
// errors.
func (NativeExtractor) Extract(ctx context.Context, raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		runs := page.Content().Text
		if hasWidths(runs) {
			writeRuns(&b, runs)
		} else if len(runs) > 0 {
			writeOperators(&b, page)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// writeRuns appends positioned text runs to b, inserting a newline when the
// baseline moves and a space when the horizontal gap looks like a word break.
func writeRuns(b *strings.Builder, runs []pdf.Text) {
	for i, t := range runs {
		if i > 0 {
			prev := runs[i-1]
			size := math.Max(prev.FontSize, 1)
			switch {
			case math.Abs(t.Y-prev.Y) > lineTolerance*size:
				b.WriteByte('\n')
			case t.X-(prev.X+prev.W) > wordGap*size:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
}

// hasWidths reports whether any run carries a glyph width. Fonts without a
// /Widths array (the standard 14 usually omit it) leave every width zero and
// never advance X, so positions cannot separate words.
func hasWidths(runs []pdf.Text) bool {
	for _, t := range runs {
		if t.W > 0 {
			return true
		}
	}
	return false
}

// writeOperators rebuilds the text of page from its content stream
// operators. Strings are decoded with the font selected by Tf and keep
// their spaces; line moves become newlines and wide TJ adjustments become
// spaces.
func writeOperators(b *strings.Builder, page pdf.Page) {
	var enc pdf.TextEncoding
	show := func(v pdf.Value) {
		if v.Kind() != pdf.String {
			return
		}
		if enc == nil {
			b.WriteString(v.RawString())
			return
		}
		b.WriteString(enc.Decode(v.RawString()))
	}

	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "Tf":
			if n == 2 {
				enc = page.Font(args[0].Name()).Encoder()
			}
		case "Tj":
			if n == 1 {
				show(args[0])
			}
		case "'":
			b.WriteByte('\n')
			if n == 1 {
				show(args[0])
			}
		case "\"":
			b.WriteByte('\n')
			if n == 3 {
				show(args[2])
			}
		case "TJ":
			if n != 1 {
				return
			}
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				x := arr.Index(i)
				if x.Kind() == pdf.String {
					show(x)
				} else if x.Float64() < tjSpace {
					b.WriteByte(' ')
				}
			}
		case "Td", "TD":
			if n != 2 {
				return
			}
			if args[1].Float64() != 0 {
				b.WriteByte('\n')
			} else if args[0].Float64() > 0 {
				b.WriteByte(' ')
			}
		case "T*", "Tm", "ET":
			b.WriteByte('\n')
		}
	})
}

// PlainExtractor accepts UTF-8 text uploads as-is.
type PlainExtractor struct{}

func (PlainExtractor) Name() string { return "plain" }

func (PlainExtractor) Extract(_ context.Context, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", errors.New("upload is not valid UTF-8 text")
	}
	return string(raw), nil
}

// PdftotextExtractor pipes the upload through poppler's pdftotext in raw
// mode, which keeps text in content-stream order.
type PdftotextExtractor struct {
	bin  string
	exec container.Executor
}

// NewPdftotextExtractor returns a backend running bin (default "pdftotext").
func NewPdftotextExtractor(bin string, x container.Executor) *PdftotextExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if x == nil {
		x = container.OSExecutor()
	}
	return &PdftotextExtractor{bin: bin, exec: x}
}

func (p *PdftotextExtractor) Name() string { return "pdftotext" }

func (p *PdftotextExtractor) Extract(ctx context.Context, raw []byte) (string, error) {
	if _, err := p.exec.LookPath(p.bin); err != nil {
		return "", fmt.Errorf("%s not available: %w", p.bin, err)
	}
	var out bytes.Buffer
	if err := p.exec.Pipe(ctx, p.bin, []string{"-raw", "-enc", "UTF-8", "-", "-"}, bytes.NewReader(raw), &out); err != nil {
		return "", fmt.Errorf("running %s: %w", p.bin, err)
	}
	return out.String(), nil
}

// MarkitdownExtractor converts uploads by piping them through the markitdown
// container image.
type MarkitdownExtractor struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownExtractor verifies that image exists in rt before returning.
func NewMarkitdownExtractor(ctx context.Context, rt container.Runtime, image string) (*MarkitdownExtractor, error) {
	if image == "" {
		image = "markitdown:latest"
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownExtractor{runtime: rt, image: image}, nil
}

func (m *MarkitdownExtractor) Name() string { return "markitdown" }

func (m *MarkitdownExtractor) Extract(ctx context.Context, raw []byte) (string, error) {
	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, bytes.NewReader(raw), &out); err != nil {
		return "", err
	}
	if out.Len() == 0 {
		return "", errors.New("markitdown produced empty output")
	}
	return stripMarkdown(out.String()), nil
}

// stripMarkdown drops heading markers and table rules so that they do not
// end up inside sentences.
func stripMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.Trim(trimmed, "|-: ") == "" {
			continue
		}
		kept = append(kept, strings.TrimLeft(trimmed, "# "))
	}
	return strings.Join(kept, "\n")
}
