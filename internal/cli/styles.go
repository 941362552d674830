package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/utafrali/critiqo/internal/domain"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")
)

type styles struct {
	header  lipgloss.Style
	muted   lipgloss.Style
	current lipgloss.Style
	errText lipgloss.Style
	badges  map[domain.ReviewStatus]lipgloss.Style
	premium lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	badge := r.NewStyle().Bold(true)
	return styles{
		header:  r.NewStyle().Foreground(colorPrimary).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
		current: r.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true),
		errText: r.NewStyle().Foreground(colorError).Bold(true),
		badges: map[domain.ReviewStatus]lipgloss.Style{
			domain.ReviewStatusDraft:       badge.Foreground(colorWarning),
			domain.ReviewStatusPublished:   badge.Foreground(colorSuccess),
			domain.ReviewStatusUnpublished: badge.Foreground(colorError),
		},
		premium: r.NewStyle().Foreground(colorWarning),
	}
}

// badge renders a status: DRAFT yellow, PUBLISHED green, UNPUBLISHED red.
func (s styles) badge(status domain.ReviewStatus) string {
	st, ok := s.badges[status]
	if !ok {
		return s.muted.Render(string(status))
	}
	return st.Render(string(status))
}
