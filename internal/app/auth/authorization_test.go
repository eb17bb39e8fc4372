package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/pkg/apperrors"
)

func TestActorContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := ActorFromContext(c)
	assert.False(t, ok)

	SetActor(c, models.Actor{Subject: "S1", Role: models.RoleStudent})
	actor, ok := ActorFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, "S1", actor.Subject)
}

func TestAuthorize(t *testing.T) {
	student := models.Actor{Subject: "S1", Role: models.RoleStudent}
	library := models.Actor{Subject: "library@nodues.app", Role: models.RoleUnit, Unit: models.UnitLibrary}
	admin := models.Actor{Subject: "admin@nodues.app", Role: models.RoleAdmin}

	assert.NoError(t, AuthorizeUnit(library, models.UnitLibrary))
	assert.ErrorIs(t, AuthorizeUnit(library, models.UnitHostel), apperrors.ErrPermissionDenied)
	assert.ErrorIs(t, AuthorizeUnit(student, models.UnitLibrary), apperrors.ErrPermissionDenied)
	assert.NoError(t, AuthorizeUnit(admin, models.UnitProctor))

	assert.NoError(t, AuthorizeStudent(student, "S1"))
	assert.ErrorIs(t, AuthorizeStudent(student, "S2"), apperrors.ErrPermissionDenied)
	assert.NoError(t, AuthorizeStudent(library, "S2"))

	assert.NoError(t, AuthorizeSubmission(student, "S1"))
	assert.NoError(t, AuthorizeSubmission(admin, "S9"))
	assert.ErrorIs(t, AuthorizeSubmission(library, "S1"), apperrors.ErrPermissionDenied)
	assert.ErrorIs(t, AuthorizeSubmission(student, "S2"), apperrors.ErrPermissionDenied)
}
