package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/pkg/retry"
)

const (
	departmentKeyPattern = "department:%s"
	hostelKeyPattern     = "hostel:%s"
	departmentsKey       = "departments"
	hostelsKey           = "hostels"
)

// ReferenceService serves the static department and hostel data. Only this
// immutable data is cached; workflow state never is.
type ReferenceService struct {
	store  repositories.Store
	cache  *cache.Cache
	reads  retry.Policy
	logger zerolog.Logger
}

// NewReferenceService creates a new reference service instance
func NewReferenceService(store repositories.Store, ttl time.Duration, logger zerolog.Logger) *ReferenceService {
	return &ReferenceService{
		store:  store,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.With().Str("component", "references").Logger(),
	}
}

// DepartmentExists reports whether a department code is known. Only hits are
// cached so codes seeded later are still found.
func (s *ReferenceService) DepartmentExists(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, fmt.Sprintf(departmentKeyPattern, code), func(ctx context.Context) (bool, error) {
		return s.store.Repos().References.DepartmentExists(ctx, code)
	})
}

// HostelExists reports whether a hostel code is known
func (s *ReferenceService) HostelExists(ctx context.Context, code string) (bool, error) {
	return s.exists(ctx, fmt.Sprintf(hostelKeyPattern, code), func(ctx context.Context) (bool, error) {
		return s.store.Repos().References.HostelExists(ctx, code)
	})
}

func (s *ReferenceService) exists(ctx context.Context, key string, lookup func(context.Context) (bool, error)) (bool, error) {
	if _, ok := s.cache.Get(key); ok {
		return true, nil
	}
	found, err := retry.Read(ctx, s.reads, lookup)
	if err != nil {
		return false, err
	}
	if found {
		s.cache.SetDefault(key, true)
	}
	return found, nil
}

// ListDepartments returns all departments ordered by code
func (s *ReferenceService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	if v, ok := s.cache.Get(departmentsKey); ok {
		return v.([]models.Department), nil
	}
	deps, err := retry.Read(ctx, s.reads, s.store.Repos().References.ListDepartments)
	if err != nil {
		return nil, err
	}
	if len(deps) > 0 {
		s.cache.SetDefault(departmentsKey, deps)
	}
	s.logger.Debug().Int("count", len(deps)).Msg("Departments loaded from store")
	return deps, nil
}

// ListHostels returns all hostels ordered by code
func (s *ReferenceService) ListHostels(ctx context.Context) ([]models.Hostel, error) {
	if v, ok := s.cache.Get(hostelsKey); ok {
		return v.([]models.Hostel), nil
	}
	hostels, err := retry.Read(ctx, s.reads, s.store.Repos().References.ListHostels)
	if err != nil {
		return nil, err
	}
	if len(hostels) > 0 {
		s.cache.SetDefault(hostelsKey, hostels)
	}
	s.logger.Debug().Int("count", len(hostels)).Msg("Hostels loaded from store")
	return hostels, nil
}

// ListUnits returns the six approving units in step order
func (s *ReferenceService) ListUnits() []models.UnitInfo {
	return models.Units()
}

