package models

import "github.com/shopspring/decimal"

// OptionType is the selection policy of an OptionGroup.
type OptionType string

const (
	OptionTypeSingle   OptionType = "single-select"
	OptionTypeMulti    OptionType = "multi-select"
	OptionTypeDropdown OptionType = "dropdown"
)

// AllowsMany reports whether more than one choice may be selected.
func (t OptionType) AllowsMany() bool {
	return t == OptionTypeMulti
}

// MenuItem is a catalog row. Orders copy what they need from it at creation
// time and never reference it afterwards.
type MenuItem struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	BasePrice      decimal.Decimal `json:"base_price"`
	CategoryID     string          `json:"category_id"`
	HasSpiceLevel  bool            `json:"has_spice_level"`
	IsAlcohol      bool            `json:"is_alcohol"`
	ShowInGolfMenu bool            `json:"show_in_golf_menu"`
	Available      bool            `json:"available"`
	POSCatalogID   string          `json:"pos_catalog_id,omitempty"`
	OptionGroups   []OptionGroup   `json:"option_groups"`
}

// OptionGroup is a top-level modifier group on a MenuItem.
type OptionGroup struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	MinRequired       int        `json:"min_required"`
	MaxAllowed        int        `json:"max_allowed"`
	OptionType        OptionType `json:"option_type"`
	POSModifierListID string     `json:"pos_modifier_list_id,omitempty"`
	Choices           []Choice   `json:"choices"`
}

// Choice is one selectable option. It may own a single NestedGroup.
type Choice struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	POSModifierID   string          `json:"pos_modifier_id,omitempty"`
	NestedGroup     *NestedGroup    `json:"nested_group,omitempty"`
}

// Choice returns the choice with id, if the group has one.
func (g OptionGroup) Choice(id string) (Choice, bool) {
	for _, c := range g.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// NestedGroup is the second and last level of options. Its choices cannot nest.
type NestedGroup struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	MinRequired       int            `json:"min_required"`
	MaxAllowed        int            `json:"max_allowed"`
	OptionType        OptionType     `json:"option_type"`
	POSModifierListID string         `json:"pos_modifier_list_id,omitempty"`
	Choices           []NestedChoice `json:"choices"`
}

// NestedChoice is a leaf option inside a NestedGroup.
type NestedChoice struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	POSModifierID   string          `json:"pos_modifier_id,omitempty"`
}

// GroupSelection holds the choices picked in one OptionGroup, plus the nested
// choices picked under each selected parent choice.
type GroupSelection struct {
	SelectedChoiceIDs []string            `json:"selected"`
	NestedSelections  map[string][]string `json:"nested,omitempty"`
}

// SelectedOptions maps OptionGroup.ID to the selection made in that group.
type SelectedOptions map[string]GroupSelection

// CartLine is one line of a client cart. MenuItem is resolved server-side from
// the catalog and is never read from the request body.
type CartLine struct {
	MenuItemID          string          `json:"menu_item_id"`
	Quantity            int             `json:"quantity"`
	SelectedOptions     SelectedOptions `json:"selected_options,omitempty"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	SpiceLevel          string          `json:"spice_level,omitempty"`
	MenuItem            *MenuItem       `json:"-"`
}
