package orders

import "github.com/01moynul/catering-golang/internal/models"

// Actor is the identity a request acts as, taken from the auth claims.
type Actor struct {
	UserID int64
	Name   string
	Role   string
}

func (a Actor) IsStaff() bool {
	switch a.Role {
	case models.RoleAdmin, models.RoleMarketing, models.RoleOperations, models.RoleKitchen, models.RoleCourier:
		return true
	}
	return false
}

func (a Actor) handlerID() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

func (a Actor) handlerName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.UserID == 0 {
		return models.HandlerSystem
	}
	return a.Role
}
