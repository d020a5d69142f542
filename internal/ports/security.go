package ports

import "github.com/google/uuid"

// Actor identifies the authenticated caller of a state-changing operation.
// Authentication itself is an external collaborator; this service only consumes
// verified claims through this narrow shape.
type Actor struct {
	UserID uuid.UUID
	Name   string
	Role   string
}

// Elevated reports whether the actor holds a role allowed to issue, revoke and
// download any certificate.
func (a Actor) Elevated() bool {
	return a.Role == "ADMIN" || a.Role == "COORDINATOR"
}

// TokenVerifier parses and validates a bearer token into actor claims.
type TokenVerifier interface {
	Verify(token string) (Actor, error)
}
