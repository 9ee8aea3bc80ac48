package enums

import "fmt"

// OrderStatus tracks the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pendiente"
	OrderStatusAccepted   OrderStatus = "aceptado"
	OrderStatusPickingUp  OrderStatus = "retirando"
	OrderStatusDelivering OrderStatus = "llevando"
	OrderStatusDelivered  OrderStatus = "entregado"
	OrderStatusCanceled   OrderStatus = "cancelado"
	OrderStatusIncident   OrderStatus = "con_novedad"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPickingUp,
	OrderStatusDelivering,
	OrderStatusDelivered,
	OrderStatusCanceled,
	OrderStatusIncident,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the delivery lifecycle.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCanceled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
