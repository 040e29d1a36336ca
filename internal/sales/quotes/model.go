package quotes

import (
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// HistoryModule names quotes in document_status_history and idempotency_keys.
const HistoryModule = "quotes"

// Quote is a priced proposal sent to a customer.
type Quote struct {
	ID          uuid.UUID             `json:"id"`
	CompanyID   uuid.UUID             `json:"companyId"`
	Number      string                `json:"number"`
	PartnerID   uuid.UUID             `json:"partnerId"`
	PartnerName string                `json:"partnerName"`
	Status      lifecycle.QuoteStatus `json:"status"`
	ValidUntil  *time.Time            `json:"validUntil"`
	Notes       string                `json:"notes"`
	document.Totals
	Items       []document.Item `json:"items"`
	OrderID     *uuid.UUID      `json:"orderId"`
	OrderNumber string          `json:"orderNumber,omitempty"`
	CreatedBy   *uuid.UUID      `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Expired reports whether a sent quote is past its validity at now.
func (q Quote) Expired(now time.Time) bool {
	return q.Status == lifecycle.QuoteSent && q.ValidUntil != nil && q.ValidUntil.Before(now)
}

// ListFilter narrows quote listings.
type ListFilter struct {
	shared.ListFilters
	Status    lifecycle.QuoteStatus
	PartnerID *uuid.UUID
}

// NewOrder is the order a conversion inserts.
type NewOrder struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Number    string
	PartnerID uuid.UUID
	QuoteID   uuid.UUID
	Notes     string
	document.Totals
	Items     []document.Item
	CreatedBy *uuid.UUID
	CreatedAt time.Time
}

// OrderRef identifies the order created from a quote.
type OrderRef struct {
	ID     uuid.UUID             `json:"id"`
	Number string                `json:"number"`
	Status lifecycle.OrderStatus `json:"status"`
}

// ConvertResult is returned by convert-to-order. Replayed is set when an
// Idempotency-Key matched an earlier conversion.
type ConvertResult struct {
	Quote    *Quote   `json:"quote"`
	Order    OrderRef `json:"order"`
	Replayed bool     `json:"replayed"`
}

// ExpiredQuote is a quote moved to EXPIRED by the expiry job.
type ExpiredQuote struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Number    string
}

// CompanyProfile is the issuer block printed on quote PDFs.
type CompanyProfile struct {
	Name      string
	TradeName string
	Document  string
	Email     string
	Phone     string
	Address   string
}
