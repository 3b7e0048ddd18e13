package session

import (
	"fmt"

	"trickia-quiz/internal/domain"
)

// MinThemes is the minimum number of themes a session must cover.
const MinThemes = 5

// Selection is an accepted theme subset.
type Selection struct {
	// Allowed are the selected theme IDs, deduplicated, in selection order.
	Allowed []string
	// Excluded are the display names of the catalogue themes left out.
	Excluded []string
}

// ValidateSelection checks a theme subset against the minimum coverage rule.
// A rejected selection returns an error wrapping ErrNotEnoughThemes or
// ErrUnknownTheme and leaves nothing to undo.
func ValidateSelection(catalogue []domain.Theme, selected []string) (Selection, error) {
	known := make(map[string]struct{}, len(catalogue))
	for _, t := range catalogue {
		known[t.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(selected))
	allowed := make([]string, 0, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		if len(known) > 0 {
			if _, ok := known[id]; !ok {
				return Selection{}, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
			}
		}
		seen[id] = struct{}{}
		allowed = append(allowed, id)
	}
	if len(allowed) < MinThemes {
		return Selection{}, fmt.Errorf("%w: got %d", ErrNotEnoughThemes, len(allowed))
	}

	excluded := make([]string, 0)
	for _, t := range catalogue {
		if _, ok := seen[t.ID]; !ok {
			excluded = append(excluded, t.Name)
		}
	}
	return Selection{Allowed: allowed, Excluded: excluded}, nil
}
