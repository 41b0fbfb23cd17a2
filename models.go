package auth

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Role is the principal's role
type Role string

const (
	// RoleSales is a salesperson (own reports)
	RoleSales Role = "sales"
	// RoleManager supervises salespersons
	RoleManager Role = "manager"
	// RoleAdmin has full access
	RoleAdmin Role = "admin"
)

// Principal is the persisted salesperson record.
type Principal struct {
	bun.BaseModel `bun:"table:salespersons,alias:sp"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          Role       `bun:"role,notnull" json:"role"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	ManagerID     *int64     `bun:"manager_id" json:"manager_id,omitempty"`
	Manager       *Principal `bun:"rel:belongs-to,join:manager_id=id" json:"manager,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Subject returns the decimal id used as the token subject.
func (p *Principal) Subject() string {
	return strconv.FormatInt(p.ID, 10)
}

// AuthenticatedPrincipal is the identity bound to a request after token
// validation. It always reflects the store at validation time.
type AuthenticatedPrincipal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// NewAuthenticatedPrincipal projects a stored principal.
func NewAuthenticatedPrincipal(p *Principal) *AuthenticatedPrincipal {
	if p == nil {
		return nil
	}
	return &AuthenticatedPrincipal{
		ID:    p.ID,
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
	}
}

// Subject returns the principal id as a string.
func (p *AuthenticatedPrincipal) Subject() string {
	return strconv.FormatInt(p.ID, 10)
}

// RoleName returns the role as a plain string.
func (p *AuthenticatedPrincipal) RoleName() string {
	return string(p.Role)
}

// IssuedToken is a signed access token plus its lifetime.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	ExpiresAt   time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     *IssuedToken
	Principal *Principal
}
