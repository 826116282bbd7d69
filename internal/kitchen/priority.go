package kitchen

import (
	"time"

	"github.com/arunika-pos/api/internal/enum"
)

// ageBoostAfter is how long an order may wait before its tickets gain an
// extra priority point.
const ageBoostAfter = 15 * time.Minute

// TicketPriority ranks a ticket for the kitchen display. Delivery orders
// outrank dine-in, dine-in outranks takeaway, and anything that has been
// waiting longer than ageBoostAfter gets bumped one level.
func TicketPriority(orderType enum.OrderType, orderedAt, now time.Time) int32 {
	var p int32
	switch orderType {
	case enum.OrderTypeDelivery:
		p = 3
	case enum.OrderTypeDineIn:
		p = 2
	default:
		p = 1
	}
	if now.Sub(orderedAt) > ageBoostAfter {
		p++
	}
	return p
}
