package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RosterRow is one participant in the room roster.
type RosterRow struct {
	PeerID string
	Role   string
	Status string
}

// RosterView renders the current room membership as a table.
func RosterView(rows []RosterRow) string {
	if len(rows) == 0 {
		return MutedStyle.Render("No participants yet")
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatTitle
	t.AppendHeader(table.Row{"#", "Participant", "Role", "Status"})

	for i, row := range rows {
		t.AppendRow(table.Row{i + 1, shortID(row.PeerID), row.Role, row.Status})
	}

	return t.Render()
}

// RenderRoster outputs the roster directly to stdout.
func RenderRoster(rows []RosterRow) {
	fmt.Println(RosterView(rows))
}

// shortID trims a relay-assigned UUID down to a readable handle.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
