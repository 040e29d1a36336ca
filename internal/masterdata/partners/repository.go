package partners

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

var sortColumns = map[string]string{
	"name":      "name",
	"type":      "type",
	"document":  "document",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const partnerColumns = `id, company_id, type, name, document, email, phone, address, notes, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Partner, int, error) {
	order, err := filter.OrderClause(sortColumns, "name")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("company_id = " + w.Arg(companyID))
	if filter.Type != "" {
		// BOTH partners match customer and supplier listings
		w.And(fmt.Sprintf("(type = %s OR type = 'BOTH')", w.Arg(string(filter.Type))))
	}
	if filter.IsActive != nil {
		w.And("is_active = " + w.Arg(*filter.IsActive))
	}
	if filter.Search != "" {
		p := w.Arg("%" + filter.Search + "%")
		w.And(fmt.Sprintf("(name ILIKE %s OR document ILIKE %s OR email ILIKE %s)", p, p, p))
	}
	if filter.StartDate != nil {
		w.And("created_at >= " + w.Arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		w.And("created_at <= " + w.Arg(*filter.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM partners "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filter.Limit, filter.Offset())
	rows, err := r.db.Query(ctx, "SELECT "+partnerColumns+" FROM partners "+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	partners := []Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, 0, err
		}
		partners = append(partners, *p)
	}
	return partners, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*Partner, error) {
	p, err := scanPartner(r.db.QueryRow(ctx, "SELECT "+partnerColumns+" FROM partners WHERE company_id = $1 AND id = $2", companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("partner")
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM partners
WHERE company_id = $1 AND lower(name) = lower($2) AND is_active AND id <> $3)`, companyID, name, exclude).Scan(&exists)
	return exists, err
}

func (r *repository) DocumentExists(ctx context.Context, companyID uuid.UUID, document string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM partners WHERE company_id = $1 AND document = $2 AND id <> $3)`,
		companyID, document, exclude).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, p *Partner) error {
	_, err := r.db.Exec(ctx, `INSERT INTO partners (id, company_id, type, name, document, email, phone, address, notes, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $11)`,
		p.ID, p.CompanyID, p.Type, p.Name, p.Document, p.Email, p.Phone, p.Address, p.Notes, p.IsActive, p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("partner %q already exists", p.Name)
	}
	return err
}

func (r *repository) Update(ctx context.Context, p *Partner) error {
	tag, err := r.db.Exec(ctx, `UPDATE partners SET type = $3, name = $4, document = NULLIF($5, ''), email = $6, phone = $7, address = $8, notes = $9, updated_at = $10
WHERE company_id = $1 AND id = $2`, p.CompanyID, p.ID, p.Type, p.Name, p.Document, p.Email, p.Phone, p.Address, p.Notes, p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("partner %q already exists", p.Name)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("partner")
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE partners SET is_active = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, active)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("an active partner with the same name already exists")
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("partner")
	}
	return nil
}

func scanPartner(row pgx.Row) (*Partner, error) {
	var p Partner
	var document *string
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Type, &p.Name, &document, &p.Email, &p.Phone, &p.Address, &p.Notes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if document != nil {
		p.Document = *document
	}
	return &p, nil
}
