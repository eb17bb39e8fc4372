package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appModels "github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/repositories/memory"
	"github.com/yigit/nodues/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateDefaultDataIsIdempotent(t *testing.T) {
	auth.BcryptCost = bcrypt.MinCost
	ctx := context.Background()
	store := memory.NewStore()
	opts := Options{AdminEmail: "Admin@nodues.app", AdminPassword: "admin123", OfficerPassword: "officer123"}

	res, err := CreateDefaultData(ctx, store, opts, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Result{Departments: 6, Hostels: 3, Staff: 7}, res)

	res, err = CreateDefaultData(ctx, store, opts, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	ok, err := store.Repos().References.DepartmentExists(ctx, "CSE")
	require.NoError(t, err)
	assert.True(t, ok)

	admin, err := store.Repos().Staff.FindByEmail(ctx, "admin@nodues.app")
	require.NoError(t, err)
	assert.Equal(t, appModels.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "admin123"))

	officer, err := store.Repos().Staff.FindByEmail(ctx, OfficerEmail(appModels.UnitLibrary))
	require.NoError(t, err)
	require.NotNil(t, officer.UnitType)
	assert.Equal(t, appModels.UnitLibrary, *officer.UnitType)
}

func TestCreateDefaultDataSkipsStaffWithoutPasswords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	res, err := CreateDefaultData(ctx, store, Options{AdminEmail: "admin@nodues.app"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Staff)
	assert.Equal(t, 3, res.Hostels)
}
