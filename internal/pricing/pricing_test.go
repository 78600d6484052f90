package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func burger() *models.MenuItem {
	return &models.MenuItem{
		ID:           "burger",
		Title:        "Clubhouse Burger",
		BasePrice:    dec("8.00"),
		POSCatalogID: "SQ-BURGER",
		Available:    true,
		OptionGroups: []models.OptionGroup{
			{
				ID:          "size",
				Title:       "Size",
				MinRequired: 1,
				MaxAllowed:  1,
				OptionType:  models.OptionTypeSingle,
				Choices: []models.Choice{
					{ID: "regular", Label: "Regular"},
					{
						ID:              "double",
						Label:           "Double",
						PriceAdjustment: dec("2.50"),
						POSModifierID:   "SQ-MOD-DOUBLE",
						NestedGroup: &models.NestedGroup{
							ID:         "cheese",
							Title:      "Cheese",
							MaxAllowed: 2,
							OptionType: models.OptionTypeMulti,
							Choices: []models.NestedChoice{
								{ID: "cheddar", Label: "Cheddar", PriceAdjustment: dec("1.00"), POSModifierID: "SQ-MOD-CHEDDAR"},
								{ID: "swiss", Label: "Swiss", PriceAdjustment: dec("1.25")},
								{ID: "brie", Label: "Brie", PriceAdjustment: dec("2.00")},
							},
						},
					},
				},
			},
			{
				ID:         "extras",
				Title:      "Extras",
				MaxAllowed: 3,
				OptionType: models.OptionTypeMulti,
				Choices: []models.Choice{
					{ID: "bacon", Label: "Bacon", PriceAdjustment: dec("1.50")},
					{ID: "onion", Label: "Onion", PriceAdjustment: dec("0.33")},
				},
			},
		},
	}
}

func TestResolveLinePrice_NoOptions(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		qty   int
		total string
	}{
		{"single", "10.00", 1, "10.00"},
		{"multiple", "10.00", 2, "20.00"},
		{"zero quantity defaults to one", "4.25", 0, "4.25"},
		{"negative quantity defaults to one", "4.25", -3, "4.25"},
		{"fractional cents round once per line", "0.333", 3, "1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := models.CartLine{MenuItem: &models.MenuItem{BasePrice: dec(tt.base)}, Quantity: tt.qty}
			assertMoney(t, tt.total, ResolveLinePrice(line))
		})
	}
}

func TestResolveLinePrice_MissingItem(t *testing.T) {
	assertMoney(t, "0", ResolveLinePrice(models.CartLine{Quantity: 2}))
}

func TestResolveLine_NestedAdjustmentsAreAdditive(t *testing.T) {
	line := models.CartLine{
		MenuItem: burger(),
		Quantity: 1,
		SelectedOptions: models.SelectedOptions{
			"size": {
				SelectedChoiceIDs: []string{"double"},
				NestedSelections:  map[string][]string{"double": {"cheddar"}},
			},
		},
	}

	got := ResolveLine(line)

	assertMoney(t, "11.50", got.UnitPrice)
	assertMoney(t, "11.50", got.LineTotal)
	require.Len(t, got.Modifiers, 2)
	assert.Equal(t, "double", got.Modifiers[0].ChoiceID)
	assert.False(t, got.Modifiers[0].Nested())
	assert.Equal(t, "cheddar", got.Modifiers[1].ChoiceID)
	assert.Equal(t, "double", got.Modifiers[1].ParentChoiceID)
	assert.Equal(t, "cheese", got.Modifiers[1].GroupID)
}

func TestResolveLine_StaleSelectionsSkipped(t *testing.T) {
	line := models.CartLine{
		MenuItem: burger(),
		Quantity: 2,
		SelectedOptions: models.SelectedOptions{
			"size":    {SelectedChoiceIDs: []string{"regular", "removed-choice"}},
			"removed": {SelectedChoiceIDs: []string{"x"}},
			"extras":  {SelectedChoiceIDs: []string{"onion"}},
		},
	}

	got := ResolveLine(line)

	assertMoney(t, "8.33", got.UnitPrice)
	assertMoney(t, "16.66", got.LineTotal)
	assert.Len(t, got.Modifiers, 2)
}

func TestResolveLine_NestedIgnoredWhenParentNotSelected(t *testing.T) {
	line := models.CartLine{
		MenuItem: burger(),
		Quantity: 1,
		SelectedOptions: models.SelectedOptions{
			"size": {
				SelectedChoiceIDs: []string{"regular"},
				NestedSelections:  map[string][]string{"double": {"brie"}},
			},
		},
	}

	assertMoney(t, "8.00", ResolveLinePrice(line))
}

func TestSubtotalAndAlcohol(t *testing.T) {
	items := []models.OrderLineItem{
		{LineTotal: dec("11.50")},
		{LineTotal: dec("6.00"), IsAlcohol: true},
	}

	assertMoney(t, "17.50", Subtotal(items))
	assert.True(t, ContainsAlcohol(items))
	assert.False(t, ContainsAlcohol(items[:1]))
}

func TestTax(t *testing.T) {
	assertMoney(t, "1.20", Tax(dec("20.00"), dec("0.06")))
	assertMoney(t, "0.69", Tax(dec("11.50"), dec("0.06")))
	assertMoney(t, "0.03", Tax(dec("0.50"), dec("0.06")))
}

func TestTax_MonotonicInSubtotal(t *testing.T) {
	rate := dec("0.0725")
	prev := decimal.Zero
	for cents := int64(0); cents <= 5000; cents += 7 {
		got := Tax(decimal.New(cents, -2), rate)
		assert.True(t, got.GreaterThanOrEqual(prev), "tax decreased at %d cents", cents)
		prev = got
	}
}

func TestTip(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		selector string
		custom   string
		want     string
	}{
		{"none", "20.00", "0", "", "0"},
		{"empty selector", "20.00", "", "", "0"},
		{"fifteen", "20.00", "15", "", "3.00"},
		{"ten with percent sign", "11.50", "10%", "", "1.15"},
		{"twenty", "33.33", "20", "", "6.67"},
		{"custom", "20.00", "custom", "4.5", "4.50"},
		{"custom rounds to cents", "20.00", "custom", "4.555", "4.56"},
		{"custom negative clamps", "20.00", "custom", "-5", "0"},
		{"custom not numeric", "20.00", "custom", "five", "0"},
		{"unknown selector", "20.00", "12", "", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertMoney(t, tt.want, Tip(dec(tt.subtotal), tt.selector, tt.custom))
		})
	}
}

func TestNormalizeTipSelector(t *testing.T) {
	sel, ok := NormalizeTipSelector(" 20% ")
	assert.True(t, ok)
	assert.Equal(t, Tip20, sel)

	sel, ok = NormalizeTipSelector("CUSTOM")
	assert.True(t, ok)
	assert.Equal(t, TipCustom, sel)

	_, ok = NormalizeTipSelector("25")
	assert.False(t, ok)
}

func scenarioBParams(subtotal string) DeliveryParams {
	return DeliveryParams{
		Distance:                dec("5"),
		TravelTimeMinutes:       12,
		RatePerMile:             dec("1.5"),
		RatePerHour:             dec("20"),
		RestaurantFeePercentage: dec("0.1"),
		OrderSubtotal:           dec(subtotal),
		MinimumCharge:           dec("3"),
		FreeDeliveryThreshold:   dec("50"),
	}
}

func TestDeliveryFee(t *testing.T) {
	fees := DeliveryFee(scenarioBParams("11.50"))
	assertMoney(t, "11.50", fees.TotalFee)
	assertMoney(t, "11.50", fees.CustomerFee)
	assert.False(t, fees.FreeDelivery())

	again := DeliveryFee(scenarioBParams("11.50"))
	assert.True(t, fees.TotalFee.Equal(again.TotalFee))
	assert.True(t, fees.CustomerFee.Equal(again.CustomerFee))
}

func TestDeliveryFee_MinimumCharge(t *testing.T) {
	p := scenarioBParams("11.50")
	p.Distance = dec("0.5")
	p.TravelTimeMinutes = 2

	fees := DeliveryFee(p)

	assertMoney(t, "3", fees.TotalFee)
	assertMoney(t, "3", fees.CustomerFee)
}

func TestDeliveryFee_ThresholdInclusive(t *testing.T) {
	fees := DeliveryFee(scenarioBParams("50.00"))
	assertMoney(t, "0", fees.CustomerFee)
	assertMoney(t, "11.50", fees.TotalFee)
	assert.True(t, fees.FreeDelivery())

	fees = DeliveryFee(scenarioBParams("49.99"))
	assertMoney(t, "11.50", fees.CustomerFee)
}

func TestDeliveryFee_RoundsTripCost(t *testing.T) {
	p := scenarioBParams("10")
	p.Distance = dec("3.333")
	p.RatePerMile = dec("1")
	p.TravelTimeMinutes = 7
	p.RatePerHour = dec("10")

	// 3.333 + 7/60*10 = 4.4996...
	assertMoney(t, "4.50", DeliveryFee(p).TotalFee)
}

func TestRestaurantDeliveryFee(t *testing.T) {
	assertMoney(t, "1.15", RestaurantDeliveryFee(dec("0.1"), dec("11.50")))
	assertMoney(t, "0", RestaurantDeliveryFee(decimal.Zero, dec("11.50")))
}

func TestPayoutsFor(t *testing.T) {
	p := PayoutsFor(models.DeliveryTypeDelivery, dec("11.50"), dec("1.15"))
	assertMoney(t, "12.65", p.Driver)
	assertMoney(t, "0", p.Server)

	p = PayoutsFor(models.DeliveryTypeOnCourse, dec("0"), dec("3.00"))
	assertMoney(t, "0", p.Driver)
	assertMoney(t, "3.00", p.Server)
}

func TestScenarioA_ClubhousePickup(t *testing.T) {
	line := ResolveLine(models.CartLine{MenuItem: &models.MenuItem{BasePrice: dec("10.00")}, Quantity: 2})
	subtotal := Subtotal([]models.OrderLineItem{line})
	tax := Tax(subtotal, dec("0.06"))
	tip := Tip(subtotal, "15", "")

	assertMoney(t, "20.00", subtotal)
	assertMoney(t, "1.20", tax)
	assertMoney(t, "3.00", tip)
	assertMoney(t, "24.20", Total(subtotal, tax, tip, decimal.Zero))
}

func TestScenarioB_Delivery(t *testing.T) {
	line := ResolveLine(models.CartLine{
		MenuItem: burger(),
		Quantity: 1,
		SelectedOptions: models.SelectedOptions{
			"size": {SelectedChoiceIDs: []string{"double"}, NestedSelections: map[string][]string{"double": {"cheddar"}}},
		},
	})
	subtotal := Subtotal([]models.OrderLineItem{line})
	tax := Tax(subtotal, dec("0.06"))
	tip := Tip(subtotal, "10%", "")
	fees := DeliveryFee(scenarioBParams(subtotal.String()))
	restaurant := RestaurantDeliveryFee(dec("0.1"), subtotal)
	payouts := PayoutsFor(models.DeliveryTypeDelivery, fees.TotalFee, tip)

	assertMoney(t, "11.50", subtotal)
	assertMoney(t, "0.69", tax)
	assertMoney(t, "1.15", tip)
	assertMoney(t, "11.50", fees.CustomerFee)
	assertMoney(t, "1.15", restaurant)
	assertMoney(t, "24.84", Total(subtotal, tax, tip, fees.CustomerFee))
	assertMoney(t, "12.65", payouts.Driver)
}

func TestScenarioC_ThresholdMet(t *testing.T) {
	subtotal := dec("60.00")
	tip := Tip(subtotal, "10", "")
	fees := DeliveryFee(scenarioBParams(subtotal.String()))
	payouts := PayoutsFor(models.DeliveryTypeDelivery, fees.TotalFee, tip)

	assertMoney(t, "0", fees.CustomerFee)
	assertMoney(t, "11.50", fees.TotalFee)
	assertMoney(t, "17.50", payouts.Driver)
}

func TestValidateSelections(t *testing.T) {
	tests := []struct {
		name    string
		sel     models.SelectedOptions
		wantErr string
	}{
		{
			name: "valid",
			sel: models.SelectedOptions{
				"size":   {SelectedChoiceIDs: []string{"double"}, NestedSelections: map[string][]string{"double": {"cheddar", "swiss"}}},
				"extras": {SelectedChoiceIDs: []string{"bacon", "onion"}},
			},
		},
		{
			name:    "required group missing",
			sel:     models.SelectedOptions{},
			wantErr: "selected_options.size",
		},
		{
			name:    "only stale ids in required group",
			sel:     models.SelectedOptions{"size": {SelectedChoiceIDs: []string{"gone"}}},
			wantErr: "selected_options.size",
		},
		{
			name:    "two choices in single select",
			sel:     models.SelectedOptions{"size": {SelectedChoiceIDs: []string{"regular", "double"}}},
			wantErr: "selected_options.size",
		},
		{
			name: "nested over max",
			sel: models.SelectedOptions{
				"size": {SelectedChoiceIDs: []string{"double"}, NestedSelections: map[string][]string{"double": {"cheddar", "swiss", "brie"}}},
			},
			wantErr: "selected_options.size.cheese",
		},
		{
			name: "nested under unselected parent ignored",
			sel: models.SelectedOptions{
				"size": {SelectedChoiceIDs: []string{"regular"}, NestedSelections: map[string][]string{"double": {"cheddar", "swiss", "brie"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelections(burger(), tt.sel)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantErr, ve.Field)
		})
	}
}
