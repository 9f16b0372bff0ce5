package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "shopping-dashboard/internal/errors"
	"shopping-dashboard/internal/models"
)

const (
	batchSize  = 10000
	maxWorkers = 10
)

// Table is a raw CSV: a header and string cells. Rows may be shorter than
// the header; missing cells read as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// Dataset is a converted table together with its detected format.
type Dataset struct {
	Events []models.Event
	Format Format
}

func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, apperrors.DataFormat(err, "read csv header")
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.DataFormat(err, "read csv row")
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// ReadFile opens path and converts it into a Dataset.
func ReadFile(ctx context.Context, path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	table, err := ReadCSV(ctx, file)
	if err != nil {
		return nil, err
	}

	return Convert(ctx, table)
}

// Convert resolves the canonical columns, detects the format and turns
// every row into an Event. Rows are converted in parallel batches but keep
// their input order. Any unparseable timestamp fails the whole table.
func Convert(ctx context.Context, table *Table) (*Dataset, error) {
	if len(table.Header) == 0 {
		return &Dataset{Events: []models.Event{}, Format: FormatEventLog}, nil
	}

	cols, err := ResolveColumns(table.Header)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, len(table.Rows))
	batchErrs := make([]error, (len(table.Rows)+batchSize-1)/batchSize)

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for b := range batchErrs {
		start := b * batchSize
		end := min(start+batchSize, len(table.Rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					batchErrs[b] = err
					return nil
				}

				event, err := convertRow(table.Rows[i], cols)
				if err != nil {
					// Line numbers count the header as line 1.
					batchErrs[b] = apperrors.DataFormat(err, fmt.Sprintf("invalid row at line %d", i+2))
					return nil
				}
				events[i] = event
			}
			return nil
		})
	}
	_ = g.Wait()

	// The lowest batch holds the first bad line.
	for _, err := range batchErrs {
		if err != nil {
			return nil, err
		}
	}

	return &Dataset{Events: events, Format: DetectFormat(table.Header)}, nil
}

func convertRow(record []string, cols Columns) (models.Event, error) {
	ts, err := ParseTimestamp(cell(record, cols.Timestamp))
	if err != nil {
		return models.Event{}, err
	}

	return models.Event{
		UserID:        cell(record, cols.UserID),
		SessionID:     cell(record, cols.SessionID),
		Timestamp:     ts,
		Action:        cell(record, cols.Action),
		PageType:      cell(record, cols.PageType),
		MainCategory:  cell(record, cols.MainCategory),
		ClothingModel: cell(record, cols.ClothingModel),
		Order:         cell(record, cols.Order),
	}, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
