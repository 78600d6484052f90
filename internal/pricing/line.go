// Package pricing holds the pure money functions shared by order creation,
// checkout preview, the POS mapper and the finance report. Nothing in here
// touches I/O or mutable state.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
)

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ResolveLinePrice returns the rounded total of one cart line:
// (base price + selected adjustments) * quantity.
func ResolveLinePrice(line models.CartLine) decimal.Decimal {
	return ResolveLine(line).LineTotal
}

// ResolveLine prices a cart line and snapshots the selected modifiers in
// catalog order. Selections that no longer exist on the item are skipped.
func ResolveLine(line models.CartLine) models.OrderLineItem {
	qty := line.Quantity
	if qty <= 0 {
		qty = 1
	}

	out := models.OrderLineItem{
		MenuItemID:          line.MenuItemID,
		Quantity:            qty,
		SpecialInstructions: line.SpecialInstructions,
		SpiceLevel:          line.SpiceLevel,
		Modifiers:           []models.SelectedModifier{},
	}

	item := line.MenuItem
	if item == nil {
		out.BasePrice = decimal.Zero
		out.UnitPrice = decimal.Zero
		out.LineTotal = decimal.Zero
		return out
	}

	out.Title = item.Title
	out.BasePrice = item.BasePrice
	out.IsAlcohol = item.IsAlcohol
	out.POSCatalogID = item.POSCatalogID

	unit := item.BasePrice
	for _, group := range item.OptionGroups {
		sel, ok := line.SelectedOptions[group.ID]
		if !ok {
			continue
		}
		picked := toSet(sel.SelectedChoiceIDs)

		for _, choice := range group.Choices {
			if _, ok := picked[choice.ID]; !ok {
				continue
			}
			unit = unit.Add(choice.PriceAdjustment)
			out.Modifiers = append(out.Modifiers, models.SelectedModifier{
				GroupID:           group.ID,
				GroupTitle:        group.Title,
				POSModifierListID: group.POSModifierListID,
				ChoiceID:          choice.ID,
				Label:             choice.Label,
				PriceAdjustment:   choice.PriceAdjustment,
				POSModifierID:     choice.POSModifierID,
			})

			if choice.NestedGroup == nil {
				continue
			}
			nestedPicked := toSet(sel.NestedSelections[choice.ID])
			for _, nc := range choice.NestedGroup.Choices {
				if _, ok := nestedPicked[nc.ID]; !ok {
					continue
				}
				unit = unit.Add(nc.PriceAdjustment)
				out.Modifiers = append(out.Modifiers, models.SelectedModifier{
					GroupID:           choice.NestedGroup.ID,
					GroupTitle:        choice.NestedGroup.Title,
					POSModifierListID: choice.NestedGroup.POSModifierListID,
					ChoiceID:          nc.ID,
					Label:             nc.Label,
					PriceAdjustment:   nc.PriceAdjustment,
					POSModifierID:     nc.POSModifierID,
					ParentChoiceID:    choice.ID,
				})
			}
		}
	}

	out.UnitPrice = unit
	// Rounded once per line, after the quantity multiply.
	out.LineTotal = Round2(unit.Mul(decimal.NewFromInt(int64(qty))))
	return out
}

// Subtotal sums already-resolved line totals.
func Subtotal(items []models.OrderLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return total
}

// ContainsAlcohol reports whether any line is an alcoholic item.
func ContainsAlcohol(items []models.OrderLineItem) bool {
	for _, it := range items {
		if it.IsAlcohol {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
