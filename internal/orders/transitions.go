package orders

import (
	"fmt"

	"github.com/01moynul/catering-golang/internal/models"
)

type transition struct {
	from models.OrderStatus
	to   models.OrderStatus
}

// transitionRoles is the complete fulfillment graph. Any (from, to) pair missing here is
// rejected. RoleBuyer entries only apply to the buyer who owns the order.
var transitionRoles = map[transition][]string{
	{models.StatusCreated, models.StatusProcessing}:     {models.RoleKitchen, models.RoleOperations, models.RoleAdmin},
	{models.StatusProcessing, models.StatusReadyToShip}: {models.RoleKitchen, models.RoleOperations, models.RoleAdmin},
	{models.StatusProcessing, models.StatusShipping}:    {models.RoleCourier, models.RoleOperations, models.RoleAdmin},
	{models.StatusReadyToShip, models.StatusShipping}:   {models.RoleCourier, models.RoleOperations, models.RoleAdmin},
	{models.StatusReadyToShip, models.StatusCompleted}:  {models.RoleOperations, models.RoleAdmin},
	{models.StatusShipping, models.StatusCompleted}:     {models.RoleCourier, models.RoleOperations, models.RoleAdmin},

	{models.StatusCreated, models.StatusCancelled}:     {models.RoleBuyer, models.RoleOperations, models.RoleAdmin},
	{models.StatusProcessing, models.StatusCancelled}:  {models.RoleOperations, models.RoleAdmin},
	{models.StatusReadyToShip, models.StatusCancelled}: {models.RoleOperations, models.RoleAdmin},
	{models.StatusShipping, models.StatusCancelled}:    {models.RoleOperations, models.RoleAdmin},
}

// CheckTransition decides whether role may move an order from one status to another.
// isOwner marks the buyer who placed the order.
func CheckTransition(from, to models.OrderStatus, role string, isOwner bool) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	roles, ok := transitionRoles[transition{from, to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, r := range roles {
		if r != role {
			continue
		}
		if r == models.RoleBuyer && !isOwner {
			break
		}
		return nil
	}
	return fmt.Errorf("%w: %s cannot move %s -> %s", ErrTransitionForbidden, role, from, to)
}

// AllowedTransitions lists the statuses role may move an order in from to, in pipeline order.
func AllowedTransitions(from models.OrderStatus, role string, isOwner bool) []models.OrderStatus {
	allowed := []models.OrderStatus{}
	for _, to := range models.AllStatuses {
		if CheckTransition(from, to, role, isOwner) == nil {
			allowed = append(allowed, to)
		}
	}
	return allowed
}

// visibleStatuses is the slice of the pipeline each role's dashboard works on.
// nil means every status.
func visibleStatuses(role string) []models.OrderStatus {
	switch role {
	case models.RoleKitchen:
		return []models.OrderStatus{models.StatusCreated, models.StatusProcessing}
	case models.RoleCourier:
		return []models.OrderStatus{models.StatusReadyToShip, models.StatusShipping}
	default:
		return nil
	}
}
