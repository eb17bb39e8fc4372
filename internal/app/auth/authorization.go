// Package auth carries the authenticated caller through a request and
// answers what that caller may do.
package auth

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

// actorKey is the gin context key of the authenticated caller
const actorKey = "actor"

// SetActor stores the authenticated caller on the request context
func SetActor(c *gin.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}

// ActorFromContext returns the caller stored by the JWT middleware
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// AuthorizeUnit fails unless the actor may decide or query the Track of unit
func AuthorizeUnit(actor models.Actor, unit models.UnitType) error {
	if actor.CanActOn(unit) {
		return nil
	}
	return apperrors.NewCustomError(apperrors.ErrPermissionDenied,
		fmt.Sprintf("%s %s may not act for the %s unit", actor.Role, actor.Subject, unit))
}

// AuthorizeStudent fails unless the actor may read or act on the student's data
func AuthorizeStudent(actor models.Actor, studentID string) error {
	if actor.CanReadStudent(studentID) {
		return nil
	}
	return apperrors.NewCustomError(apperrors.ErrPermissionDenied, "students may only access their own clearance")
}

// AuthorizeSubmission fails unless the actor may submit a form for studentID.
// Students submit for themselves; admins may submit on a student's behalf.
func AuthorizeSubmission(actor models.Actor, studentID string) error {
	switch {
	case actor.Role == models.RoleAdmin:
		return nil
	case actor.Role == models.RoleStudent && actor.Subject == studentID:
		return nil
	}
	return apperrors.NewCustomError(apperrors.ErrPermissionDenied, "students may only submit their own form")
}
