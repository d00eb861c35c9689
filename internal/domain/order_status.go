package domain

type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

var orderStatuses = []OrderStatus{OrderStatusProcessing, OrderStatusOutForDelivery, OrderStatusDelivered}

var statusRank = map[OrderStatus]int{
	OrderStatusProcessing:     0,
	OrderStatusOutForDelivery: 1,
	OrderStatusDelivered:      2,
}

func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
// Re-applying the current status is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return next.IsValid()
	}
	to, ok := statusRank[next]
	return ok && to >= from
}

// Later lists the statuses an order cannot leave for s without moving backwards.
func (s OrderStatus) Later() []OrderStatus {
	rank, ok := statusRank[s]
	if !ok {
		return nil
	}
	return append([]OrderStatus(nil), orderStatuses[rank+1:]...)
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}
