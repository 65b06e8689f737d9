package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/facescan/internal/formatter"
)

var _ list.Item = matchItem{}

// matchItem wraps a matched image reference to implement [list.Item].
type matchItem struct {
	index int
	url   string
}

func (i matchItem) FilterValue() string { return i.url }
func (i matchItem) Title() string       { return formatter.MatchLabel(i.index) }
func (i matchItem) Description() string { return i.url }

func matchItems(results []string) []list.Item {
	items := make([]list.Item, len(results))
	for i, url := range results {
		items[i] = matchItem{index: i, url: url}
	}
	return items
}
