package domain

type DeliverySlot struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var deliverySlots = []DeliverySlot{
	{ID: "slot-6-9", Label: "6:00 AM - 9:00 AM"},
	{ID: "slot-9-12", Label: "9:00 AM - 12:00 PM"},
	{ID: "slot-12-17", Label: "12:00 PM - 5:00 PM"},
}

// DeliverySlots returns a copy of the fixed slot list.
func DeliverySlots() []DeliverySlot {
	out := make([]DeliverySlot, len(deliverySlots))
	copy(out, deliverySlots)
	return out
}

func IsDeliverySlot(id string) bool {
	for _, s := range deliverySlots {
		if s.ID == id {
			return true
		}
	}
	return false
}
