package pricing

import (
	"fmt"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// ValidateSelections checks sel against each group's selection policy. Only
// choice ids that still exist on the item are counted, so stale ids never
// fail a line on their own. Nested groups are checked only under selected
// parent choices.
func ValidateSelections(item *models.MenuItem, sel models.SelectedOptions) error {
	for _, group := range item.OptionGroups {
		picked := toSet(sel[group.ID].SelectedChoiceIDs)

		var chosen []models.Choice
		for _, c := range group.Choices {
			if _, ok := picked[c.ID]; ok {
				chosen = append(chosen, c)
			}
		}

		if err := checkPolicy(group.ID, group.Title, group.OptionType, group.MinRequired, group.MaxAllowed, len(chosen)); err != nil {
			return err
		}

		for _, c := range chosen {
			if c.NestedGroup == nil {
				continue
			}
			ng := c.NestedGroup
			nestedPicked := toSet(sel[group.ID].NestedSelections[c.ID])
			count := 0
			for _, nc := range ng.Choices {
				if _, ok := nestedPicked[nc.ID]; ok {
					count++
				}
			}
			if err := checkPolicy(group.ID+"."+ng.ID, ng.Title, ng.OptionType, ng.MinRequired, ng.MaxAllowed, count); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPolicy(field, title string, kind models.OptionType, minRequired, maxAllowed, count int) error {
	if count < minRequired {
		return apperr.NewValidationError("selected_options."+field,
			fmt.Sprintf("%s requires at least %d selection(s)", title, minRequired))
	}
	if !kind.AllowsMany() && count > 1 {
		return apperr.NewValidationError("selected_options."+field,
			fmt.Sprintf("%s allows only one selection", title))
	}
	if kind.AllowsMany() && maxAllowed > 0 && count > maxAllowed {
		return apperr.NewValidationError("selected_options."+field,
			fmt.Sprintf("%s allows at most %d selection(s)", title, maxAllowed))
	}
	return nil
}
