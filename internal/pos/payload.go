// Package pos pushes persisted orders to the point-of-sale system so the
// kitchen sees them. Orders reach the POS through a durable outbox drained by
// Worker; Syncer does one idempotent push.
package pos

// Money is an amount in the smallest currency unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Modifier is a mapped choice. ModifierListID is the POS group it belongs to.
type Modifier struct {
	CatalogObjectID string `json:"catalog_object_id"`
	ModifierListID  string `json:"modifier_list_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Quantity        string `json:"quantity"`
	BasePriceMoney  *Money `json:"base_price_money,omitempty"`
}

// LineItem is either a catalog row (CatalogObjectID set) or a loose row
// carrying its own name and price.
type LineItem struct {
	UID             string     `json:"uid"`
	CatalogObjectID string     `json:"catalog_object_id,omitempty"`
	Name            string     `json:"name,omitempty"`
	Quantity        string     `json:"quantity"`
	BasePriceMoney  *Money     `json:"base_price_money,omitempty"`
	Modifiers       []Modifier `json:"modifiers,omitempty"`
	Note            string     `json:"note,omitempty"`
}

type Order struct {
	LocationID  string     `json:"location_id"`
	ReferenceID string     `json:"reference_id"`
	LineItems   []LineItem `json:"line_items"`
	TicketName  string     `json:"ticket_name,omitempty"`
	Note        string     `json:"note"`
}

// Payload is the body of a POS order creation request.
type Payload struct {
	IdempotencyKey string `json:"idempotency_key"`
	Order          Order  `json:"order"`
}

type createOrderResponse struct {
	Order struct {
		ID string `json:"id"`
	} `json:"order"`
}

type cashDetails struct {
	BuyerSuppliedMoney Money `json:"buyer_supplied_money"`
}

type createPaymentRequest struct {
	IdempotencyKey string      `json:"idempotency_key"`
	SourceID       string      `json:"source_id"`
	OrderID        string      `json:"order_id"`
	LocationID     string      `json:"location_id"`
	AmountMoney    Money       `json:"amount_money"`
	CashDetails    cashDetails `json:"cash_details"`
}
