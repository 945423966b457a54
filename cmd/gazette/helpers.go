package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/ui"
)

// feedTimeoutSeconds is the HTTP timeout for one-shot CLI fetches.
const feedTimeoutSeconds = 30

// printChannel writes a plain-text listing of up to limit items.
func printChannel(channel *feeds.Channel, limit int) {
	fmt.Printf("\nTitle: %s\n", channel.Title)
	if channel.Description != "" {
		fmt.Printf("Description: %s\n", channel.Description)
	}
	fmt.Println("----------------------------------------")

	for i, item := range channel.Items {
		if i >= limit {
			break
		}
		title := item.Title
		if title == "" {
			title = "No Title"
		}
		fmt.Printf("%d. %s\n", i+1, title)
		if item.Link != "" {
			fmt.Printf("   Link: %s\n", item.Link)
		}
		if item.Published != "" {
			fmt.Printf("   Date: %s\n", item.Published)
		}
		fmt.Println()
	}
}

// runTUI runs a Bubble Tea app in the alternate screen.
func runTUI(app *ui.App) error {
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
