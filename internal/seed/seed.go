package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/nodues/internal/app/models"
	appRepos "github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/auth"
)

// Options controls which staff accounts are created. Accounts whose password
// is empty are skipped.
type Options struct {
	AdminEmail      string
	AdminPassword   string
	OfficerPassword string
}

// Result counts the rows actually inserted
type Result struct {
	Departments int
	Hostels     int
	Staff       int
}

func strPtr(s string) *string { return &s }

var defaultDepartments = []appModels.Department{
	{Code: "CSE", Name: "Computer Science & Engineering", Head: strPtr("Dr. John Doe")},
	{Code: "ECE", Name: "Electronics & Communication", Head: strPtr("Dr. Jane Smith")},
	{Code: "ME", Name: "Mechanical Engineering", Head: strPtr("Dr. Bob Wilson")},
	{Code: "CE", Name: "Civil Engineering", Head: strPtr("Dr. Alice Brown")},
	{Code: "EE", Name: "Electrical Engineering", Head: strPtr("Dr. Charlie Davis")},
	{Code: "IT", Name: "Information Technology", Head: strPtr("Dr. Eve Johnson")},
}

var defaultHostels = []appModels.Hostel{
	{Code: "H1", Name: "Hostel 1", Warden: strPtr("Mr. Warden 1")},
	{Code: "H2", Name: "Hostel 2", Warden: strPtr("Ms. Warden 2")},
	{Code: "H3", Name: "Hostel 3", Warden: strPtr("Mr. Warden 3")},
}

// OfficerEmail is the login of the seeded officer of a unit, e.g. library@nodues.app
func OfficerEmail(unit appModels.UnitType) string {
	return strings.ToLower(string(unit)) + "@nodues.app"
}

// CreateDefaultData inserts the reference data and staff accounts that are
// missing. Existing rows are left alone, so it is safe on every start.
func CreateDefaultData(ctx context.Context, store appRepos.Store, opts Options, lgr zerolog.Logger) (Result, error) {
	var res Result
	var finalErr error // collect errors without stopping the process
	repos := store.Repos()

	lgr.Info().Msg("Checking/Creating default data (Departments/Hostels/Staff)...")

	for _, d := range defaultDepartments {
		created, err := repos.References.EnsureDepartment(ctx, d)
		if err != nil {
			lgr.Error().Err(err).Str("code", d.Code).Msg("Error creating department")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if created {
			res.Departments++
			lgr.Debug().Str("code", d.Code).Msg("Department created")
		}
	}

	for _, h := range defaultHostels {
		created, err := repos.References.EnsureHostel(ctx, h)
		if err != nil {
			lgr.Error().Err(err).Str("code", h.Code).Msg("Error creating hostel")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		if created {
			res.Hostels++
			lgr.Debug().Str("code", h.Code).Msg("Hostel created")
		}
	}

	if opts.AdminPassword != "" && opts.AdminEmail != "" {
		created, err := ensureStaff(ctx, repos, &appModels.Staff{
			Email: strings.ToLower(opts.AdminEmail),
			Name:  "Administrator",
			Role:  appModels.RoleAdmin,
		}, opts.AdminPassword)
		if err != nil {
			lgr.Error().Err(err).Msg("Error creating admin account")
			finalErr = errors.Join(finalErr, err)
		} else if created {
			res.Staff++
		}
	} else {
		lgr.Warn().Msg("Admin password not configured, skipping admin account")
	}

	if opts.OfficerPassword != "" {
		for _, unit := range appModels.UnitOrder {
			unit := unit // per-iteration copy (go1.21 loop semantics)
			created, err := ensureStaff(ctx, repos, &appModels.Staff{
				Email:    OfficerEmail(unit),
				Name:     string(unit) + " Officer",
				Role:     appModels.RoleUnit,
				UnitType: &unit,
			}, opts.OfficerPassword)
			if err != nil {
				lgr.Error().Err(err).Str("unit", string(unit)).Msg("Error creating unit officer")
				finalErr = errors.Join(finalErr, err)
				continue
			}
			if created {
				res.Staff++
			}
		}
	} else {
		lgr.Warn().Msg("Officer password not configured, skipping unit officer accounts")
	}

	lgr.Info().
		Int("departments", res.Departments).
		Int("hostels", res.Hostels).
		Int("staff", res.Staff).
		Msg("Default data check complete")
	return res, finalErr
}

func ensureStaff(ctx context.Context, repos *appRepos.Repositories, staff *appModels.Staff, password string) (bool, error) {
	// Skip the bcrypt work for accounts that already exist
	if _, err := repos.Staff.FindByEmail(ctx, staff.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password for %s: %w", staff.Email, err)
	}
	staff.PasswordHash = hash
	return repos.Staff.Ensure(ctx, staff)
}
