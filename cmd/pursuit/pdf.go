package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPDFText caps the extracted text stored as a posting description.
const maxPDFText = 20000

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}

	text := tidyLines(string(b))
	if text == "" {
		return "", fmt.Errorf("%s has no extractable text", path)
	}
	return truncateRunes(text, maxPDFText), nil
}

// tidyLines collapses the whitespace inside each line and drops empty
// lines, keeping the line breaks the title heuristic relies on.
func tidyLines(s string) string {
	var out []string
	for line := range strings.Lines(s) {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
