package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/ui"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

var (
	exportFormat  string
	exportKind    string
	exportSession string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved narratives",
	Long: `Export saved narratives from the first local sink (sqlite or jsonl).

Examples:
  narrativa export                       # table
  narrativa export --format yaml
  narrativa export --format json --kind secondary > secundarias.json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "table", "output format: table, yaml or json")
	exportCmd.Flags().StringVar(&exportKind, "kind", "", "only primary or secondary narratives")
	exportCmd.Flags().StringVar(&exportSession, "session", "", "only narratives from this session id")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := GetConfig().Store
	local := cfg.Sinks[:0:0]
	for _, s := range cfg.Sinks {
		if s != store.SinkSheets {
			local = append(local, s)
		}
	}
	cfg.Sinks = local

	stores, err := store.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	records, err := stores.Reader.Records(cmd.Context())
	if err != nil {
		return types.PersistenceError("export", "read records", err)
	}
	return writeRecords(cmd.OutOrStdout(), filterRecords(records, store.Kind(exportKind), exportSession), exportFormat)
}

func filterRecords(records []store.Record, kind store.Kind, sessionID string) []store.Record {
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		if kind != "" && r.Kind != kind {
			continue
		}
		if sessionID != "" && r.SessionID != sessionID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func writeRecords(w io.Writer, records []store.Record, format string) error {
	switch format {
	case "table":
		_, err := io.WriteString(w, ui.RecordsTable(records, 60))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	}
	return types.InvalidInputError("export", fmt.Sprintf("unknown format %q (use table, yaml or json)", format))
}
