package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs and
// math delimiters inside them are honored.
type TextParser struct {
	Options
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc := &doctree.Document{
		Metadata: doctree.Metadata{Title: titleFromFilename(filename)},
	}
	m := mathBuilder{opts: p.Options}
	for _, para := range paragraphs {
		blocks, err := m.proseBlocks(para)
		if err != nil {
			return nil, fmt.Errorf("parse text: %w", err)
		}
		doc.Blocks = append(doc.Blocks, blocks...)
	}

	return doc, nil
}
