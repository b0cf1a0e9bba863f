// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileResult is the outcome of segmenting one file.
type FileResult struct {
	Path      string
	Sentences []string
	Err       error
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Files     []FileResult
	Segmented int
	Failed    int
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Segmented + r.Failed
}

// HasFailures reports whether any file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// SegmentFiles reads and segments each path in turn, printing per-file
// status to w and a summary line at the end. A failing file does not stop
// the batch.
func SegmentFiles(ctx context.Context, s Segmenter, paths []string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range paths {
		fr := FileResult{Path: p}
		base := filepath.Base(p)

		raw, err := os.ReadFile(p)
		if err == nil {
			fr.Sentences, err = s.Segment(ctx, raw)
		}
		if err != nil {
			fr.Err = err
			result.Failed++
			fmt.Fprintf(w, "failed:    %s (%v)\n", base, err)
		} else {
			result.Segmented++
			fmt.Fprintf(w, "segmented: %s (%d sentences)\n", base, len(fr.Sentences))
		}
		result.Files = append(result.Files, fr)
	}
	fmt.Fprintf(w, "\nBatch summary: %d segmented, %d failed (total: %d)\n",
		result.Segmented, result.Failed, result.Total())
	return result
}
