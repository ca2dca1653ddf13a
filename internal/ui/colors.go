package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/tabx/internal/formatter"
	"github.com/desertthunder/tabx/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Status returns the style used for an outcome status.
func (p *Palette) Status(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusAdded, models.StatusWouldAdd:
		return p.ok
	case models.StatusAlreadyPresent:
		return p.help
	case models.StatusAmbiguous, models.StatusNotFound:
		return p.warn
	default:
		return p.err
	}
}

// StatusPainter colors report fragments by status with the default palette.
func StatusPainter() formatter.Painter {
	return func(s models.Status, text string) string {
		return styles.Status(s).Render(text)
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
