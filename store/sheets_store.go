package store

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetsRange is used when no range is configured.
const DefaultSheetsRange = "A:B"

// SheetsStore appends each record as a [text, timestamp] row to a spreadsheet.
type SheetsStore struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	rng           string
}

// NewSheetsStore connects to the Sheets API. credentialsFile may be empty when
// opts carry their own credentials.
func NewSheetsStore(ctx context.Context, spreadsheetID, rng, credentialsFile string, opts ...option.ClientOption) (*SheetsStore, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if rng == "" {
		rng = DefaultSheetsRange
	}
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsStore{values: srv.Spreadsheets.Values, spreadsheetID: spreadsheetID, rng: rng}, nil
}

// Append adds one row after the last filled row of the range.
func (s *SheetsStore) Append(ctx context.Context, r Record) error {
	row := &sheets.ValueRange{
		Values: [][]interface{}{{r.Text, r.Timestamp.Format(time.RFC3339)}},
	}
	_, err := s.values.Append(s.spreadsheetID, s.rng, row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to sheet %s: %w", s.spreadsheetID, err)
	}
	return nil
}
