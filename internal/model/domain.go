package model

import (
	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleOperator UserRole = "OPERATOR"
	UserRoleViewer   UserRole = "VIEWER"
)

type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

// CanRegisterVehicles reports whether the principal may create vehicle records.
func (p Principal) CanRegisterVehicles() bool {
	return p.Role == UserRoleAdmin || p.Role == UserRoleOperator
}

func (p Principal) CanExport() bool {
	return p.Role == UserRoleAdmin || p.Role == UserRoleOperator || p.Role == UserRoleViewer
}
