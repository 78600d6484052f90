package pos

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

const (
	scheduledLayout = "Jan 2 3:04 PM"
	noteSeparator   = " | "
)

var hundred = decimal.NewFromInt(100)

// Mapper turns a persisted order into a POS payload. Amounts come from the
// order as stored; nothing is re-priced.
type Mapper struct {
	locationID string
	currency   string
	location   *time.Location
}

// NewMapper builds a mapper that formats scheduled times in timezone. An
// unknown timezone falls back to UTC.
func NewMapper(locationID, currency, timezone string) *Mapper {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return &Mapper{locationID: locationID, currency: currency, location: loc}
}

func (m *Mapper) money(amount decimal.Decimal) *Money {
	return &Money{Amount: amount.Mul(hundred).Round(0).IntPart(), Currency: m.currency}
}

// MapOrderToPOSPayload builds the POS order for o. The idempotency key is the
// order id so a retried push cannot create a second POS order. Tax, delivery
// fee and tip are sent as fixed rows so the POS total equals TotalAmount.
func (m *Mapper) MapOrderToPOSPayload(o *models.Order) *Payload {
	lines := make([]LineItem, 0, len(o.Items)+3)
	for i, item := range o.Items {
		lines = append(lines, m.lineItem(i, item))
	}

	if o.TaxAmount.IsPositive() {
		lines = append(lines, LineItem{
			UID:            "sales-tax",
			Name:           "Sales Tax",
			Quantity:       "1",
			BasePriceMoney: m.money(o.TaxAmount),
		})
	}

	if o.CustomerDeliveryFee.IsPositive() {
		lines = append(lines, LineItem{
			UID:            "delivery-fee",
			Name:           "Delivery Fee",
			Quantity:       "1",
			BasePriceMoney: m.money(o.CustomerDeliveryFee),
		})
	}
	if o.TipAmount.IsPositive() {
		lines = append(lines, LineItem{
			UID:            "tip",
			Name:           "Tip",
			Quantity:       "1",
			BasePriceMoney: m.money(o.TipAmount),
		})
	}

	order := Order{
		LocationID:  m.locationID,
		ReferenceID: o.OrderCode,
		LineItems:   lines,
		TicketName:  o.OrderCode,
		Note:        m.note(o),
	}

	return &Payload{IdempotencyKey: o.ID, Order: order}
}

func (m *Mapper) lineItem(i int, item models.OrderLineItem) LineItem {
	line := LineItem{
		UID:      "line-" + strconv.Itoa(i+1),
		Quantity: strconv.Itoa(item.Quantity),
		Note:     lineNote(item),
	}

	if item.POSCatalogID == "" {
		line.Name = item.Title
		line.BasePriceMoney = m.money(item.UnitPrice)
		if labels := modifierLabels(item.Modifiers); labels != "" {
			line.Note = joinNonEmpty(", ", labels, line.Note)
		}
		return line
	}

	// Mapped modifiers carry their own price, so the row price is the unit
	// price minus those adjustments. Unmapped adjustments stay in the row.
	line.CatalogObjectID = item.POSCatalogID
	base := item.UnitPrice
	for _, mod := range item.Modifiers {
		if mod.POSModifierID == "" {
			continue
		}
		line.Modifiers = append(line.Modifiers, Modifier{
			CatalogObjectID: mod.POSModifierID,
			ModifierListID:  mod.POSModifierListID,
			Name:            mod.Label,
			Quantity:        "1",
			BasePriceMoney:  m.money(mod.PriceAdjustment),
		})
		base = base.Sub(mod.PriceAdjustment)
	}
	line.BasePriceMoney = m.money(base)
	return line
}

func (m *Mapper) note(o *models.Order) string {
	parts := []string{o.OrderCode}
	if o.ContainsAlcohol {
		parts = append(parts, "Contains alcohol")
	}
	if o.DeliveryType.IsGolf() {
		parts = append(parts, "Golf order")
	}
	if o.ScheduledFor != nil {
		parts = append(parts, "Scheduled @ "+o.ScheduledFor.In(m.location).Format(scheduledLayout))
	} else {
		parts = append(parts, "ASAP")
	}
	return strings.Join(parts, noteSeparator)
}

func lineNote(item models.OrderLineItem) string {
	spice := ""
	if item.SpiceLevel != "" {
		spice = "Spice: " + item.SpiceLevel
	}
	return joinNonEmpty(", ", spice, item.SpecialInstructions)
}

func modifierLabels(mods []models.SelectedModifier) string {
	labels := make([]string, 0, len(mods))
	for _, mod := range mods {
		labels = append(labels, mod.Label)
	}
	return strings.Join(labels, ", ")
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
