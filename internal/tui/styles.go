package tui

import "github.com/charmbracelet/lipgloss"

var (
	dimColor    = lipgloss.Color("7")
	accentColor = lipgloss.Color("12")
	userColor   = lipgloss.Color("10")
	dangerColor = lipgloss.Color("9")
	likeColor   = lipgloss.Color("13")

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	UserStyle = lipgloss.NewStyle().
			Foreground(userColor).
			Bold(true)

	BotStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	TypingStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	LikeStyle = lipgloss.NewStyle().
			Foreground(likeColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(likeColor).
			Bold(true)
)
