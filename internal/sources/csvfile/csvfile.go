// Package csvfile reads waste records from a delimited text file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"wastedash/internal/core"
	"wastedash/internal/sources"
)

type Source struct {
	path      string
	delimiter rune
}

var _ sources.Source = (*Source)(nil)

// New returns a source for path. A zero delimiter means comma.
func New(path string, delimiter rune) *Source {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Source{path: path, delimiter: delimiter}
}

func (s *Source) Name() string { return "csv:" + s.path }

// Fingerprint combines size and modification time of the file.
func (s *Source) Fingerprint(_ context.Context) (string, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", s.path, err)
	}
	return fmt.Sprintf("%d-%d", fi.Size(), fi.ModTime().UnixNano()), nil
}

func (s *Source) ReadRecords(_ context.Context) ([]core.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := Parse(f, s.delimiter)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return records, nil
}

// Parse reads a header row followed by data rows. Rows may have any number
// of fields; missing ones are reported as empty and rejected by cleaning.
func Parse(r io.Reader, delimiter rune) ([]core.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := sources.ColumnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []core.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		out = append(out, cols.Row(line, row))
	}
	return out, nil
}
