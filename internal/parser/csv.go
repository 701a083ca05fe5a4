package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/typstgest/internal/doctree"
)

// CSVParser handles CSV files. The first record is the table header.
type CSVParser struct {
	Options
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{
		Metadata: doctree.Metadata{Title: titleFromFilename(filename)},
	}
	if len(records) == 0 {
		return doc, nil
	}

	m := mathBuilder{opts: p.Options}
	row := func(record []string) ([]doctree.Cell, error) {
		cells := make([]doctree.Cell, 0, len(record))
		for _, field := range record {
			inl, err := m.proseInlines(field)
			if err != nil {
				return nil, err
			}
			cells = append(cells, doctree.Cell(inl))
		}
		return cells, nil
	}

	table := &doctree.Table{}
	if table.Header, err = row(records[0]); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	for _, record := range records[1:] {
		cells, err := row(record)
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		table.Rows = append(table.Rows, cells)
	}
	doc.Blocks = []doctree.Block{table}
	return doc, nil
}
