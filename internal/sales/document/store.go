package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Number prefixes.
const (
	PrefixQuote = "ORC"
	PrefixOrder = "OS"
)

// NextNumber reserves the next number of prefix for the company in the month
// of at, e.g. ORC-2405-0007. Run it inside the transaction that inserts the
// document so the sequence row stays locked until commit.
func NextNumber(ctx context.Context, conn db.DBTX, companyID uuid.UUID, prefix string, at time.Time) (string, error) {
	var seq int64
	err := conn.QueryRow(ctx, `INSERT INTO document_sequences (company_id, doc_type, period, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (company_id, doc_type, period)
DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, companyID, prefix, at.Format("200601")).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, at, seq), nil
}

// FormatNumber renders a document number.
func FormatNumber(prefix string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.Format("0601"), seq)
}

// CustomerActive reports whether partnerID is an active customer of the
// company.
func CustomerActive(ctx context.Context, conn db.DBTX, companyID, partnerID uuid.UUID) (bool, error) {
	var ok bool
	err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM partners
WHERE company_id = $1 AND id = $2 AND is_active AND type IN ('CUSTOMER', 'BOTH'))`, companyID, partnerID).Scan(&ok)
	return ok, err
}

// ProductNames returns the names of the given products that belong to the
// company.
func ProductNames(ctx context.Context, conn db.DBTX, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := conn.Query(ctx, `SELECT id, name FROM products WHERE company_id = $1 AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ResolveItems checks that every referenced product belongs to the company
// and fills missing descriptions with the product name.
func ResolveItems(inputs []ItemInput, names map[uuid.UUID]string) error {
	if len(inputs) == 0 {
		return shared.Validation("items must contain at least one item")
	}
	for i := range inputs {
		in := &inputs[i]
		in.Description = strings.TrimSpace(in.Description)
		if in.ProductID != nil {
			name, ok := names[*in.ProductID]
			if !ok {
				return shared.Validation("items[%d].productId does not exist", i)
			}
			if in.Description == "" {
				in.Description = name
			}
		}
		if in.Description == "" {
			return shared.Validation("items[%d].description is required", i)
		}
	}
	return nil
}

// Table names items are stored in. They are constants and never user input.
const (
	QuoteItems = "quote_items"
	OrderItems = "order_items"
)

func parentColumn(table string) string {
	if table == QuoteItems {
		return "quote_id"
	}
	return "order_id"
}

// ReplaceItems deletes the items of a document and inserts items.
func ReplaceItems(ctx context.Context, conn db.DBTX, table string, parentID uuid.UUID, items []Item) error {
	col := parentColumn(table)
	if _, err := conn.Exec(ctx, "DELETE FROM "+table+" WHERE "+col+" = $1", parentID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	for _, it := range items {
		_, err := conn.Exec(ctx, "INSERT INTO "+table+" (id, "+col+`, product_id, description, quantity, unit_price, discount_type, discount,
subtotal, discount_value, total, position) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)`,
			it.ID, parentID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, string(it.DiscountType), it.Discount,
			it.Subtotal, it.DiscountValue, it.Total, it.Position)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
	}
	return nil
}

// LoadItems returns the items of a document in position order.
func LoadItems(ctx context.Context, conn db.DBTX, table string, parentID uuid.UUID) ([]Item, error) {
	rows, err := conn.Query(ctx, `SELECT id, product_id, description, quantity, unit_price, COALESCE(discount_type, ''), discount,
subtotal, discount_value, total, position FROM `+table+` WHERE `+parentColumn(table)+` = $1 ORDER BY position`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.DiscountType, &it.Discount,
			&it.Subtotal, &it.DiscountValue, &it.Total, &it.Position); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
