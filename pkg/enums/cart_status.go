package enums

// CartStatus tracks where a cart sits in the approval pipeline.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusPending   CartStatus = "pending"
	CartStatusApproved  CartStatus = "approved"
	CartStatusRejected  CartStatus = "rejected"
	CartStatusCancelled CartStatus = "cancelled"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusPending,
	CartStatusApproved,
	CartStatusRejected,
	CartStatusCancelled,
}

var cartTransitions = map[CartStatus][]CartStatus{
	CartStatusActive:   {CartStatusPending, CartStatusCancelled},
	CartStatusPending:  {CartStatusApproved, CartStatusRejected, CartStatusCancelled},
	CartStatusRejected: {CartStatusCancelled},
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	return contains(validCartStatuses, c)
}

// CanTransitionTo reports whether moving from c to next is a legal edge.
func (c CartStatus) CanTransitionTo(next CartStatus) bool {
	return contains(cartTransitions[c], next)
}

// CartStatuses returns every known status in pipeline order.
func CartStatuses() []CartStatus {
	out := make([]CartStatus, len(validCartStatuses))
	copy(out, validCartStatuses)
	return out
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	return parse("cart status", validCartStatuses, value)
}
