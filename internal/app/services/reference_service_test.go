package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/repositories/memory"
)

func TestReferenceServiceCachesHitsOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewReferenceService(store, time.Minute, zerolog.Nop())

	ok, err := svc.DepartmentExists(ctx, "CSE")
	require.NoError(t, err)
	assert.False(t, ok)

	// seeded after the miss: still found because misses are not cached
	_, err = store.Repos().References.EnsureDepartment(ctx, models.Department{Code: "CSE", Name: "Computer Science & Engineering"})
	require.NoError(t, err)
	ok, err = svc.DepartmentExists(ctx, "CSE")
	require.NoError(t, err)
	assert.True(t, ok)

	deps, err := svc.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 1)

	_, err = store.Repos().References.EnsureDepartment(ctx, models.Department{Code: "ECE", Name: "Electronics & Communication"})
	require.NoError(t, err)
	deps, err = svc.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, deps, 1, "list served from cache")

	deps, err = NewReferenceService(store, time.Minute, zerolog.Nop()).ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}

func TestListUnitsInStepOrder(t *testing.T) {
	svc := NewReferenceService(memory.NewStore(), time.Minute, zerolog.Nop())
	units := svc.ListUnits()
	require.Len(t, units, models.TrackCount)
	for i, u := range units {
		assert.Equal(t, models.UnitOrder[i], u.UnitType)
		assert.Equal(t, i+1, u.StepNumber)
	}
}
