package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TokenInfo describes an issued access token.
type TokenInfo struct {
	Identity  string
	Room      string
	Issuer    string
	ExpiresAt time.Time
	Token     string
}

// TokenSummaryView renders the token's claims as a table. The token itself
// is printed below the table so it can be copied without line breaks.
func TokenSummaryView(info TokenInfo) string {
	t := prettytable.NewWriter()
	t.SetTitle(IconKey + " Access Token")
	t.AppendHeader(prettytable.Row{"Field", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Identity", info.Identity},
		{"Room", info.Room},
		{"Issuer", info.Issuer},
		{"Expires", expiry(info.ExpiresAt)},
	})
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Colors = text.Colors{text.FgCyan, text.Bold}
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}

	return t.Render() + "\n\n" + info.Token
}

func expiry(at time.Time) string {
	if at.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (in %s)", at.Format(time.RFC3339), time.Until(at).Round(time.Second))
}

func RenderTokenSummary(w io.Writer, info TokenInfo) {
	fmt.Fprintln(w, TokenSummaryView(info))
}

// ServerInfoView renders a two column startup banner for the server
// commands.
func ServerInfoView(rows [][]string) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Setting", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderServerInfo(w io.Writer, title string, rows [][]string) {
	fmt.Fprintf(w, "%s\n%s\n", TitleStyle.Render(title), ServerInfoView(rows))
}
