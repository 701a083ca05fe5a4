package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/typstgest/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles become headings, list
// paragraphs become list items and everything else is prose.
type DOCXParser struct {
	Options
}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "typstgest-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	d, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := &doctree.Document{
		Metadata: doctree.Metadata{Title: titleFromFilename(filename)},
	}
	m := mathBuilder{opts: p.Options}

	var list *doctree.List
	endList := func() {
		if list != nil {
			doc.Blocks = append(doc.Blocks, list)
			list = nil
		}
	}

	for _, item := range d.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		if level := docxHeadingLevel(para); level > 0 {
			endList()
			inl, err := m.proseInlines(text)
			if err != nil {
				return nil, fmt.Errorf("parse docx: %w", err)
			}
			doc.Blocks = append(doc.Blocks, &doctree.Heading{Level: level, Inlines: inl})
			continue
		}

		blocks, err := m.proseBlocks(text)
		if err != nil {
			return nil, fmt.Errorf("parse docx: %w", err)
		}
		if docxIsListItem(para) {
			if list == nil {
				list = &doctree.List{Kind: doctree.Unordered}
			}
			list.Items = append(list.Items, blocks)
			continue
		}
		endList()
		doc.Blocks = append(doc.Blocks, blocks...)
	}
	endList()

	return doc, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(para *docx.Paragraph) int {
	style := strings.ToLower(strings.ReplaceAll(docxStyle(para), " ", ""))
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func docxIsListItem(para *docx.Paragraph) bool {
	style := strings.ToLower(strings.ReplaceAll(docxStyle(para), " ", ""))
	return strings.HasPrefix(style, "listparagraph") || strings.HasPrefix(style, "listbullet")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
