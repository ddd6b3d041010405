package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Sink names accepted in store.sinks.
const (
	SinkSQLite = "sqlite"
	SinkJSONL  = "jsonl"
	SinkSheets = "sheets"
)

// Stores bundles the database and the configured record sinks.
type Stores struct {
	DB   *SQLiteStore
	Sink *MultiSink
	// Reader lists saved records from the first local sink, or the database.
	Reader RecordReader
}

// Open builds every store cfg enables. cfg.Path and cfg.JSONLPath must already be resolved.
func Open(ctx context.Context, cfg types.StoreConfig) (*Stores, error) {
	const op = "open stores"

	db, err := NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, types.PersistenceError(op, "open database", err)
	}

	out := &Stores{DB: db, Reader: db}
	var sinks []NamedSink
	readerSet := false

	for _, name := range cfg.Sinks {
		switch name {
		case SinkSQLite:
			sinks = append(sinks, NamedSink{Name: name, Sink: db})
			readerSet = true
		case SinkJSONL:
			fs := NewFileStore(cfg.JSONLPath)
			sinks = append(sinks, NamedSink{Name: name, Sink: fs})
			if !readerSet {
				out.Reader = fs
				readerSet = true
			}
		case SinkSheets:
			sh, err := NewSheetsStore(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range, cfg.Sheets.CredentialsFile)
			if err != nil {
				_ = db.Close()
				return nil, types.ConfigurationError(op, "sheets sink", err)
			}
			sinks = append(sinks, NamedSink{Name: name, Sink: sh})
		default:
			_ = db.Close()
			return nil, types.ConfigurationError(op, fmt.Sprintf("unknown sink %q", name), nil)
		}
	}

	out.Sink = NewMultiSink(sinks...)
	slog.Debug("stores opened", "path", cfg.Path, "sinks", cfg.Sinks)
	return out, nil
}

// Close releases the database.
func (s *Stores) Close() error {
	return s.DB.Close()
}
