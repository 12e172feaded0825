package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smallbiznis/loyara/internal/config"
	"github.com/smallbiznis/loyara/internal/dataset"
	"github.com/smallbiznis/loyara/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service reads the raw CSV exports and validates their column sets.
type Service interface {
	Extract(ctx context.Context) (map[string]*dataset.RawTable, error)
}

type service struct {
	dir     string
	log     *zap.Logger
	metrics *telemetry.Metrics
}

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *telemetry.Metrics
}

func New(p Params) Service {
	return &service{
		dir:     p.Config.RawDataDir,
		log:     p.Log.Named("ingest.service"),
		metrics: p.Metrics,
	}
}

// Extract loads every known source table from <dir>/<table>.csv. A missing
// file is a warning and the table is absent from the result; a file that
// cannot be parsed fails the run.
func (s *service) Extract(ctx context.Context) (map[string]*dataset.RawTable, error) {
	tables := make(map[string]*dataset.RawTable, len(tableOrder))

	for _, name := range tableOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, name+".csv")
		table, err := s.readTable(name, path)
		if os.IsNotExist(err) {
			s.log.Warn("source file not found, skipping table",
				zap.String("table", name),
				zap.String("path", path),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}

		s.validateColumns(table)
		s.metrics.ObserveRowsIngested(name, len(table.Rows))
		s.log.Info("table extracted",
			zap.String("table", name),
			zap.Int("rows", len(table.Rows)),
		)
		tables[name] = table
	}

	return tables, nil
}

func (s *service) readTable(name, path string) (*dataset.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return &dataset.RawTable{Name: name}, nil
	}

	columns := records[0]
	rows := make([]dataset.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(dataset.Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return &dataset.RawTable{Name: name, Columns: columns, Rows: rows}, nil
}

// validateColumns compares the file header against the expected schema.
// Missing or extra columns are logged and the run proceeds.
func (s *service) validateColumns(table *dataset.RawTable) {
	expected, ok := TableSchemas[table.Name]
	if !ok {
		return
	}

	have := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		have[c] = true
	}

	var missing []string
	for _, c := range expected {
		if !have[c] {
			missing = append(missing, c)
		}
	}

	want := make(map[string]bool, len(expected))
	for _, c := range expected {
		want[c] = true
	}

	var extra []string
	for _, c := range table.Columns {
		if !want[c] {
			extra = append(extra, c)
		}
	}

	if len(missing) > 0 {
		s.log.Warn("missing columns in source table",
			zap.String("table", table.Name),
			zap.Strings("columns", missing),
		)
	}
	if len(extra) > 0 {
		s.log.Warn("extra columns in source table",
			zap.String("table", table.Name),
			zap.Strings("columns", extra),
		)
	}
}
