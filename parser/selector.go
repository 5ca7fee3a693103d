package parser

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/termharvest/config"
)

// ValidateSelectors compiles every configured CSS selector so that a typo
// fails the run at start-up instead of silently yielding placeholders.
func ValidateSelectors(sel config.Selectors) error {
	named := []struct {
		name, value string
	}{
		{"row", sel.Row},
		{"detail link", sel.DetailLink},
		{"master title", sel.MasterTitle},
		{"details row", sel.DetailsRow},
	}
	for _, n := range named {
		if _, err := cascadia.Parse(n.value); err != nil {
			return fmt.Errorf("parser: invalid %s selector %q: %w", n.name, n.value, err)
		}
	}

	if sel.LanguageCell < 0 || sel.TermCell < 0 {
		return fmt.Errorf("parser: cell indexes must not be negative")
	}
	if sel.MinCells < sel.LanguageCell || sel.MinCells < sel.TermCell {
		return fmt.Errorf("parser: min cells (%d) must cover language cell %d and term cell %d",
			sel.MinCells, sel.LanguageCell, sel.TermCell)
	}
	return nil
}
