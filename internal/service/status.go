package service

import "github.com/tm-acme-shop/clubhouse-orders-service/internal/models"

// initialStatus is where a new order starts. Cash needs no online
// authorization, so it skips PENDING_PAYMENT.
func initialStatus(method models.PaymentMethod) models.OrderStatus {
	if method == models.PaymentMethodCash {
		return models.OrderStatusReceived
	}
	return models.OrderStatusPendingPayment
}

func isValidStatusTransition(deliveryType models.DeliveryType, from, to models.OrderStatus) bool {
	validTransitions := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPendingPayment: {models.OrderStatusReceived, models.OrderStatusCancelled},
		models.OrderStatusReceived:       {models.OrderStatusReady, models.OrderStatusCancelled},
		models.OrderStatusReady:          {models.OrderStatusPickedUp, models.OrderStatusCancelled},
		models.OrderStatusPickedUp:       {models.OrderStatusOnTheWay, models.OrderStatusCancelled},
		models.OrderStatusOnTheWay:       {models.OrderStatusDelivered, models.OrderStatusCancelled},
		models.OrderStatusDelivered:      {},
		models.OrderStatusCancelled:      {},
	}

	// Orders served at the club have no driver leg.
	if deliveryType.IsGolf() {
		validTransitions[models.OrderStatusReady] = []models.OrderStatus{
			models.OrderStatusDelivered,
			models.OrderStatusCancelled,
		}
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
