package auth

import (
	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/pkg/enums"
)

// Actor is the authenticated caller handed from handlers to services.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}
