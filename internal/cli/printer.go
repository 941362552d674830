// Package cli renders list views, moderation outcomes and dashboard stats
// for the terminal, as JSON or as YAML.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"gopkg.in/yaml.v3"

	"github.com/utafrali/critiqo/internal/dashboard"
	"github.com/utafrali/critiqo/internal/domain"
	"github.com/utafrali/critiqo/internal/listview"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// TitleWidth is the widest review title shown in text tables.
const TitleWidth = 40

const dateLayout = "2006-01-02"

// ParseFormat parses an -o flag value. Empty means text.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", raw)
	}
}

// Printer writes command results in one format.
type Printer struct {
	w      io.Writer
	format Format
	styles styles
}

// NewPrinter creates a printer. Colors are used only when w is a terminal.
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format, styles: newStyles(lipgloss.NewRenderer(w))}
}

// Format returns the output format.
func (p *Printer) Format() Format {
	return p.format
}

// Encode writes v as JSON or YAML. In text mode it falls back to JSON.
func (p *Printer) Encode(v any) error {
	if p.format == FormatYAML {
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

type listDocument[T any] struct {
	listview.View[T] `yaml:",inline"`
	Query            string `json:"query" yaml:"query"`
}

// Reviews prints one page of reviews with its pager and canonical query.
func (p *Printer) Reviews(v listview.View[domain.Review], query string) error {
	if p.format != FormatText {
		return p.Encode(listDocument[domain.Review]{View: v, Query: query})
	}

	rows := make([][]string, 0, len(v.Items))
	for _, r := range v.Items {
		rows = append(rows, []string{
			r.ID,
			truncate.StringWithTail(r.Title, TitleWidth, "…"),
			p.styles.badge(r.Status),
			p.premium(r),
			fmt.Sprintf("%d", r.Rating),
			r.UpdatedAt.Format(dateLayout),
		})
	}
	return p.list(v.EmptyMessage, v.Error, []string{"ID", "TITLE", "STATUS", "PREMIUM", "RATING", "UPDATED"}, rows,
		pager(v, p.styles), v.ShowingText("reviews"), query)
}

// Users prints one page of users. Admin rows are marked as not deletable.
func (p *Printer) Users(v listview.View[domain.User], query string) error {
	if p.format != FormatText {
		return p.Encode(listDocument[domain.User]{View: v, Query: query})
	}

	rows := make([][]string, 0, len(v.Items))
	for _, u := range v.Items {
		del := "yes"
		if !u.CanDelete() {
			del = p.styles.muted.Render("disabled")
		}
		rows = append(rows, []string{
			u.ID,
			truncate.StringWithTail(u.DisplayName(), TitleWidth, "…"),
			u.Email,
			string(u.Role),
			string(u.Status),
			u.CreatedAt.Format(dateLayout),
			del,
		})
	}
	return p.list(v.EmptyMessage, v.Error, []string{"ID", "NAME", "EMAIL", "ROLE", "STATUS", "JOINED", "DELETE"}, rows,
		pager(v, p.styles), v.ShowingText("users"), query)
}

// Review prints a single review, e.g. after a moderation action.
func (p *Printer) Review(r domain.Review) error {
	if p.format != FormatText {
		return p.Encode(r)
	}
	rows := [][]string{
		{"ID", r.ID},
		{"TITLE", r.Title},
		{"STATUS", p.styles.badge(r.Status)},
		{"PREMIUM", p.premium(r)},
		{"UPDATED", r.UpdatedAt.Format(dateLayout)},
	}
	_, err := fmt.Fprint(p.w, table(nil, rows, p.styles))
	return err
}

// StatusChange is the acknowledgement of a status change on a review that
// was not on the loaded page.
type StatusChange struct {
	ID     string              `json:"id" yaml:"id"`
	Status domain.ReviewStatus `json:"status" yaml:"status"`
}

// StatusChanged prints a StatusChange.
func (p *Printer) StatusChanged(c StatusChange) error {
	if p.format != FormatText {
		return p.Encode(c)
	}
	_, err := fmt.Fprintf(p.w, "%s %s %s\n", c.ID, p.styles.muted.Render("now"), p.styles.badge(c.Status))
	return err
}

// Stats prints the dashboard counts.
func (p *Printer) Stats(s dashboard.Stats) error {
	if p.format != FormatText {
		return p.Encode(s)
	}
	rows := [][]string{
		{"Total", fmt.Sprintf("%d", s.Total)},
		{p.styles.badge(domain.ReviewStatusPublished), fmt.Sprintf("%d", s.Published)},
		{"PENDING", fmt.Sprintf("%d", s.Pending)},
		{p.styles.badge(domain.ReviewStatusUnpublished), fmt.Sprintf("%d", s.Unpublished)},
	}
	out := table([]string{"REVIEWS", "COUNT"}, rows, p.styles)
	out += p.styles.muted.Render("fetched "+s.FetchedAt.Format("2006-01-02 15:04:05 MST")) + "\n"
	_, err := fmt.Fprint(p.w, out)
	return err
}

func (p *Printer) premium(r domain.Review) string {
	if !r.IsPremium {
		return "-"
	}
	if r.PremiumPrice == nil {
		return p.styles.premium.Render("yes")
	}
	return p.styles.premium.Render(fmt.Sprintf("$%.2f", *r.PremiumPrice))
}

func (p *Printer) list(empty, errText string, headers []string, rows [][]string, pages, showing, query string) error {
	var b strings.Builder
	if errText != "" {
		b.WriteString(p.styles.errText.Render("error: "+errText) + "\n")
	}
	if len(rows) == 0 {
		b.WriteString(empty + "\n")
	} else {
		b.WriteString(table(headers, rows, p.styles))
	}
	b.WriteString("\n" + pages + "\n")
	b.WriteString(showing + "\n")
	if query != "" {
		b.WriteString(p.styles.muted.Render("query: ?"+query) + "\n")
	}
	_, err := fmt.Fprint(p.w, b.String())
	return err
}

// pager renders the page window, e.g. "‹ Prev  1 … 4 [5] 6 … 9  Next ›".
func pager[T any](v listview.View[T], s styles) string {
	parts := make([]string, 0, len(v.Window)+2)
	prev, next := "‹ Prev", "Next ›"
	if !v.CanPrev {
		prev = s.muted.Render(prev)
	}
	if !v.CanNext {
		next = s.muted.Render(next)
	}
	parts = append(parts, prev)
	for _, item := range v.Window {
		label := item.String()
		if !item.Ellipsis && item.Page == v.CurrentPage {
			label = s.current.Render("[" + label + "]")
		}
		parts = append(parts, label)
	}
	parts = append(parts, next)
	return strings.Join(parts, " ")
}

// table left-aligns cells into columns, measuring rendered width so styled
// cells line up.
func table(headers []string, rows [][]string, s styles) string {
	cols := len(headers)
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	widths := make([]int, cols)
	measure := func(r []string) {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	measure(headers)
	for _, r := range rows {
		measure(r)
	}

	var b strings.Builder
	line := func(r []string, style *lipgloss.Style) {
		cells := make([]string, len(r))
		for i, c := range r {
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			if style != nil {
				c = style.Render(c)
			}
			cells[i] = c + pad
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")
	}
	if len(headers) > 0 {
		line(headers, &s.header)
	}
	for _, r := range rows {
		line(r, nil)
	}
	return b.String()
}
