package auth

// Operation identifies a protected operation.
type Operation string

const (
	OperationLogout           Operation = "auth.logout"
	OperationMe               Operation = "auth.me"
	OperationSalespersonsList Operation = "salespersons.list"
	OperationSalespersonsShow Operation = "salespersons.show"
	OperationMetrics          Operation = "system.metrics"
)

// OperationPolicy maps operations to the roles allowed to perform them.
// Operations without an entry require authentication only.
type OperationPolicy map[Operation][]Role

// DefaultOperationPolicy returns the policy for the operations in this module.
func DefaultOperationPolicy() OperationPolicy {
	return OperationPolicy{
		OperationLogout:           nil,
		OperationMe:               nil,
		OperationSalespersonsList: nil,
		OperationSalespersonsShow: nil,
		OperationMetrics:          {RoleAdmin},
	}
}

// RequiredRoles returns the roles required for op.
func (p OperationPolicy) RequiredRoles(op Operation) []Role {
	return p[op]
}

// Guard enforces an OperationPolicy. The policy is copied on construction
// and never changes afterwards.
type Guard struct {
	policy OperationPolicy
}

// NewGuard creates a guard. A nil policy uses DefaultOperationPolicy.
func NewGuard(policy OperationPolicy) *Guard {
	if policy == nil {
		policy = DefaultOperationPolicy()
	}
	cp := make(OperationPolicy, len(policy))
	for op, roles := range policy {
		cp[op] = append([]Role(nil), roles...)
	}
	return &Guard{policy: cp}
}

// RequiredRoles returns a copy of the roles required for op.
func (g *Guard) RequiredRoles(op Operation) []Role {
	return append([]Role(nil), g.policy[op]...)
}

// Check decides whether principal may perform op.
func (g *Guard) Check(principal *AuthenticatedPrincipal, op Operation) error {
	required := g.policy[op]
	if len(required) == 0 {
		return nil
	}

	if principal == nil {
		return decorate(ErrNoIdentity, map[string]any{
			"reason":    "no_identity",
			"operation": string(op),
		})
	}

	if !Authorize(principal.Role, required) {
		return decorate(ErrInsufficientRole, map[string]any{
			"reason":    "insufficient_role",
			"operation": string(op),
			"role":      string(principal.Role),
		})
	}

	return nil
}
