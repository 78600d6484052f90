package pos

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// chargedCents sums what the POS will charge for the payload's rows.
func chargedCents(p *Payload) int64 {
	var total int64
	for _, line := range p.Order.LineItems {
		qty, _ := strconv.ParseInt(line.Quantity, 10, 64)
		unit := int64(0)
		if line.BasePriceMoney != nil {
			unit = line.BasePriceMoney.Amount
		}
		for _, mod := range line.Modifiers {
			if mod.BasePriceMoney != nil {
				unit += mod.BasePriceMoney.Amount
			}
		}
		total += unit * qty
	}
	return total
}

func deliveryOrder() *models.Order {
	return &models.Order{
		ID:            "7f0c1c9e-1111-4d1e-9a55-3c4a2b1d0e9f",
		OrderCode:     "ORD-20240315-ABC123",
		Status:        models.OrderStatusReceived,
		DeliveryType:  models.DeliveryTypeDelivery,
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.OrderLineItem{
			{
				MenuItemID:   "burger",
				Title:        "Burger",
				BasePrice:    dec("8.00"),
				UnitPrice:    dec("11.50"),
				Quantity:     2,
				LineTotal:    dec("23.00"),
				POSCatalogID: "SQ-BURGER",
				Modifiers: []models.SelectedModifier{
					{GroupID: "size", POSModifierListID: "SQ-SIZES", ChoiceID: "double", Label: "Double", PriceAdjustment: dec("2.50"), POSModifierID: "SQ-DOUBLE"},
					{GroupID: "cheese", ChoiceID: "cheddar", Label: "Cheddar", PriceAdjustment: dec("1.00"), ParentChoiceID: "double"},
				},
				SpiceLevel: "hot",
			},
			{
				MenuItemID:          "salad",
				Title:               "House Salad",
				BasePrice:           dec("7.25"),
				UnitPrice:           dec("7.25"),
				Quantity:            1,
				LineTotal:           dec("7.25"),
				Modifiers:           []models.SelectedModifier{{GroupID: "dressing", ChoiceID: "ranch", Label: "Ranch"}},
				SpecialInstructions: "no onions",
			},
		},
		ContainsAlcohol:     true,
		Subtotal:            dec("30.25"),
		TaxRate:             dec("0.06"),
		TaxAmount:           dec("1.82"),
		TipAmount:           dec("4.54"),
		CustomerDeliveryFee: dec("5.00"),
		TotalAmount:         dec("41.61"),
	}
}

func TestMapOrderToPOSPayload_DeliveryOrder(t *testing.T) {
	m := NewMapper("LOC-1", "USD", "America/New_York")
	order := deliveryOrder()

	payload := m.MapOrderToPOSPayload(order)

	assert.Equal(t, order.ID, payload.IdempotencyKey)
	assert.Equal(t, "LOC-1", payload.Order.LocationID)
	assert.Equal(t, order.OrderCode, payload.Order.ReferenceID)
	assert.Equal(t, "ORD-20240315-ABC123 | Contains alcohol | ASAP", payload.Order.Note)

	lines := payload.Order.LineItems
	require.Len(t, lines, 5)

	burger := lines[0]
	assert.Equal(t, "SQ-BURGER", burger.CatalogObjectID)
	assert.Empty(t, burger.Name)
	assert.Equal(t, "2", burger.Quantity)
	assert.Equal(t, int64(900), burger.BasePriceMoney.Amount, "mapped modifier price moves out of the row")
	require.Len(t, burger.Modifiers, 1, "modifiers without a pos id are dropped")
	assert.Equal(t, "SQ-DOUBLE", burger.Modifiers[0].CatalogObjectID)
	assert.Equal(t, "SQ-SIZES", burger.Modifiers[0].ModifierListID)
	assert.Equal(t, int64(250), burger.Modifiers[0].BasePriceMoney.Amount)
	assert.Equal(t, "Spice: hot", burger.Note)

	salad := lines[1]
	assert.Empty(t, salad.CatalogObjectID)
	assert.Equal(t, "House Salad", salad.Name)
	assert.Equal(t, int64(725), salad.BasePriceMoney.Amount)
	assert.Equal(t, "Ranch, no onions", salad.Note)

	tax := lines[2]
	assert.Equal(t, "Sales Tax", tax.Name)
	assert.Equal(t, "1", tax.Quantity)
	assert.Equal(t, int64(182), tax.BasePriceMoney.Amount)

	fee := lines[3]
	assert.Equal(t, "Delivery Fee", fee.Name)
	assert.Equal(t, "1", fee.Quantity)
	assert.Equal(t, int64(500), fee.BasePriceMoney.Amount)

	tip := lines[4]
	assert.Equal(t, "Tip", tip.Name)
	assert.Equal(t, int64(454), tip.BasePriceMoney.Amount)

	assert.Equal(t, int64(4161), chargedCents(payload))
}

func TestMapOrderToPOSPayload_TotalMatchesChargedAmount(t *testing.T) {
	m := NewMapper("LOC-1", "USD", "UTC")

	items := make([]models.OrderLineItem, 0, 4)
	for i := 0; i < 4; i++ {
		items = append(items, models.OrderLineItem{
			MenuItemID: "fries-" + strconv.Itoa(i),
			Title:      "Side of Fries",
			BasePrice:  dec("0.25"),
			UnitPrice:  dec("0.25"),
			Quantity:   1,
			LineTotal:  dec("0.25"),
		})
	}
	// Tax on the whole subtotal is 0.06; taxing each row and rounding
	// would give 0.08.
	order := &models.Order{
		ID:            "2a9e6f3c-5b1d-4c8e-8f7a-9d0b1c2e3f4a",
		OrderCode:     "ORD-20240315-FRIES1",
		DeliveryType:  models.DeliveryTypeClubhouse,
		PaymentMethod: models.PaymentMethodCash,
		Items:         items,
		Subtotal:      dec("1.00"),
		TaxRate:       dec("0.06"),
		TaxAmount:     dec("0.06"),
		TotalAmount:   dec("1.06"),
	}

	payload := m.MapOrderToPOSPayload(order)

	assert.Equal(t, int64(106), chargedCents(payload))
	assert.Equal(t, order.TotalAmount.Mul(hundred).IntPart(), chargedCents(payload))
}

func TestMapOrderToPOSPayload_ScheduledGolfOrder(t *testing.T) {
	m := NewMapper("LOC-1", "USD", "America/New_York")
	at := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

	order := deliveryOrder()
	order.DeliveryType = models.DeliveryTypeOnCourse
	order.ContainsAlcohol = false
	order.ScheduledFor = &at
	order.CustomerDeliveryFee = decimal.Zero
	order.TipAmount = decimal.Zero

	payload := m.MapOrderToPOSPayload(order)

	assert.Equal(t, "ORD-20240315-ABC123 | Golf order | Scheduled @ Mar 15 2:30 PM", payload.Order.Note)
	assert.Len(t, payload.Order.LineItems, 3, "zero fee and tip rows are omitted")
}

func TestMapOrderToPOSPayload_ZeroTaxRate(t *testing.T) {
	m := NewMapper("LOC-1", "USD", "Not/AZone")
	order := deliveryOrder()
	order.TaxRate = decimal.Zero
	order.TaxAmount = decimal.Zero
	order.TotalAmount = dec("39.79")

	payload := m.MapOrderToPOSPayload(order)

	for _, line := range payload.Order.LineItems {
		assert.NotEqual(t, "Sales Tax", line.Name)
	}
	assert.Equal(t, int64(3979), chargedCents(payload))
	assert.Equal(t, time.UTC, m.location)
}
