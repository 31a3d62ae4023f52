package domain

// RoleAdmin is the role allowed to review and dispatch submissions
const RoleAdmin = "admin"

// Principal is the authenticated caller extracted from a bearer token
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the principal may perform administrator actions
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
