package lifecycle

// QuoteStatus is the status of a quote.
type QuoteStatus string

const (
	QuoteDraft     QuoteStatus = "DRAFT"
	QuoteSent      QuoteStatus = "SENT"
	QuoteApproved  QuoteStatus = "APPROVED"
	QuoteRejected  QuoteStatus = "REJECTED"
	QuoteExpired   QuoteStatus = "EXPIRED"
	QuoteConverted QuoteStatus = "CONVERTED"
)

// OrderStatus is the status of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderPaused     OrderStatus = "PAUSED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Quotes is the quote transition table. APPROVED -> CONVERTED is only taken
// by convert-to-order.
var Quotes = NewMachine("quote", map[QuoteStatus][]QuoteStatus{
	QuoteDraft:     {QuoteSent},
	QuoteSent:      {QuoteApproved, QuoteRejected, QuoteExpired},
	QuoteApproved:  {QuoteConverted},
	QuoteRejected:  {QuoteDraft},
	QuoteExpired:   {QuoteDraft},
	QuoteConverted: nil,
})

// Orders is the order transition table.
var Orders = NewMachine("order", map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderPaused, OrderCompleted, OrderCancelled},
	OrderPaused:     {OrderInProgress, OrderCancelled},
	OrderCompleted:  nil,
	OrderCancelled:  nil,
})

// QuoteEditable reports whether quote content may change in status s.
func QuoteEditable(s QuoteStatus) bool {
	return s == QuoteDraft
}

// OrderEditable reports whether order content may change in status s.
func OrderEditable(s OrderStatus) bool {
	return s == OrderPending || s == OrderInProgress
}

// OrderOpen reports whether an order still counts as open work.
func OrderOpen(s OrderStatus) bool {
	return !Orders.Terminal(s)
}
