package notifications

import (
	"fmt"
	"strings"
)

// orderRef is the short order handle shown to people: the last 6 characters
// of the id, uppercased.
func orderRef(orderID string) string {
	ref := orderID
	if len(ref) > 6 {
		ref = ref[len(ref)-6:]
	}
	return strings.ToUpper(ref)
}

func bodyOrderCreated(orderID string, total int64) string {
	return fmt.Sprintf("Order #%s placed, total %d", orderRef(orderID), total)
}

func bodyOrderCreatedStaff(orderID string, total int64) string {
	return fmt.Sprintf("New order #%s awaiting preparation, total %d", orderRef(orderID), total)
}

func bodyStatusChanged(orderID, status string) string {
	return fmt.Sprintf("Order #%s is now %s", orderRef(orderID), status)
}

func bodyCourierAssigned(orderID string) string {
	return fmt.Sprintf("You have been assigned order #%s for delivery", orderRef(orderID))
}

func bodyOrderDelivered(orderID string) string {
	return fmt.Sprintf("Order #%s has been delivered", orderRef(orderID))
}

func bodyOrderCancelled(orderID, reason string) string {
	return fmt.Sprintf("Order #%s was cancelled: %s", orderRef(orderID), reason)
}
