package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/util"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/store"
)

// RecordsTable renders saved narratives, one row each, cutting text to width runes.
func RecordsTable(records []store.Record, width int) string {
	if len(records) == 0 {
		return StyleSubtle.Render("No hay narrativas guardadas.") + "\n"
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Foreground(ColorText).Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleSubtle).
		Headers("#", "Fecha", "Tipo", "Sesión", "Narrativa").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, r := range records {
		text := strings.Join(strings.Fields(r.Text), " ")
		t.Row(
			strconv.Itoa(i+1),
			r.Timestamp.Format("2006-01-02 15:04"),
			string(r.Kind),
			TruncateID(r.SessionID),
			Truncate(text, width),
		)
	}
	return t.Render() + "\n"
}

// TruncateID shortens an ID for display (first 8 chars).
func TruncateID(id string) string {
	return util.ShortID(id, util.DefaultShortIDLength)
}
