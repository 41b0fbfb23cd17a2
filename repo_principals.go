package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
)

// DefaultPerPage and MaxPerPage bound list pagination.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PrincipalFilter narrows List results. Nil pointers do not filter.
type PrincipalFilter struct {
	Keyword   string
	Role      Role
	ManagerID *int64
	IsActive  *bool
	Page      int
	PerPage   int
}

func (f PrincipalFilter) normalized() PrincipalFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	return f
}

// Principals is the salesperson repository.
type Principals interface {
	ProfileStore

	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Principal, error)
	List(ctx context.Context, filter PrincipalFilter) ([]*Principal, int, error)
	Subordinates(ctx context.Context, managerID int64) ([]*Principal, error)
	GetOrCreate(ctx context.Context, record *Principal) (*Principal, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Principal) (*Principal, error)
}

type principals struct {
	db bun.IDB
}

var _ Principals = (*principals)(nil)

// NewPrincipalsRepository returns a bun backed Principals repository.
func NewPrincipalsRepository(db bun.IDB) Principals {
	return &principals{db: db}
}

func (r *principals) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

// GetByEmailTx matches email exactly, case sensitive.
func (r *principals) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Principal, error) {
	record := new(Principal)
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapStoreError(err, "get principal by email")
	}
	return record, nil
}

func (r *principals) GetByID(ctx context.Context, id int64) (*Principal, error) {
	record := new(Principal)
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapStoreError(err, "get principal by id")
	}
	return record, nil
}

func (r *principals) GetByIDWithManager(ctx context.Context, id int64) (*Principal, error) {
	record := new(Principal)
	err := r.db.NewSelect().
		Model(record).
		Relation("Manager").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapStoreError(err, "get principal with manager")
	}
	return record, nil
}

// List returns one page of principals ordered by id, plus the total count.
func (r *principals) List(ctx context.Context, filter PrincipalFilter) ([]*Principal, int, error) {
	filter = filter.normalized()

	total, err := r.filtered(r.db.NewSelect().Model((*Principal)(nil)), filter).Count(ctx)
	if err != nil {
		return nil, 0, mapStoreError(err, "count principals")
	}

	records := make([]*Principal, 0)
	err = r.filtered(r.db.NewSelect().Model(&records).Relation("Manager"), filter).
		OrderExpr("?TableAlias.id ASC").
		Limit(filter.PerPage).
		Offset((filter.Page - 1) * filter.PerPage).
		Scan(ctx)
	if err != nil {
		return nil, 0, mapStoreError(err, "list principals")
	}

	return records, total, nil
}

// likeEscaper makes LIKE wildcards in a keyword match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *principals) filtered(q *bun.SelectQuery, f PrincipalFilter) *bun.SelectQuery {
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(kw)) + "%"
		q = q.Where(`LOWER(?TableAlias.name) LIKE ? ESCAPE '\'`, pattern)
	}
	if f.Role != "" {
		q = q.Where("?TableAlias.role = ?", f.Role)
	}
	if f.ManagerID != nil {
		q = q.Where("?TableAlias.manager_id = ?", *f.ManagerID)
	}
	if f.IsActive != nil {
		q = q.Where("?TableAlias.is_active = ?", *f.IsActive)
	}
	return q
}

// Subordinates returns the active principals managed by managerID.
func (r *principals) Subordinates(ctx context.Context, managerID int64) ([]*Principal, error) {
	records := make([]*Principal, 0)
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.manager_id = ?", managerID).
		Where("?TableAlias.is_active = ?", true).
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list subordinates")
	}
	return records, nil
}

func (r *principals) GetOrCreate(ctx context.Context, record *Principal) (*Principal, error) {
	return r.GetOrCreateTx(ctx, r.db, record)
}

// GetOrCreateTx inserts record unless a principal with the same email
// exists, in which case the stored one is returned untouched.
func (r *principals) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Principal) (*Principal, error) {
	existing, err := r.GetByEmailTx(ctx, tx, record.Email)
	if err == nil {
		return existing, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	if _, err := tx.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		return nil, mapStoreError(err, "insert principal")
	}
	return record, nil
}

func mapStoreError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPrincipalNotFound
	}
	return Internal(err, op)
}
