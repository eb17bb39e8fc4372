package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/app/repositories/memory"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/auth"
)

func newAuthService(t *testing.T) (*AuthService, *memory.Store, *auth.JWTService) {
	t.Helper()
	cost := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { auth.BcryptCost = cost })

	store := memory.NewStore()
	_, err := store.Repos().References.EnsureDepartment(context.Background(), models.Department{Code: "CSE", Name: "Computer Science & Engineering"})
	require.NoError(t, err)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "nodues-test",
	})
	refs := NewReferenceService(store, time.Minute, zerolog.Nop())
	return NewAuthService(store, refs, jwtService, zerolog.Nop()), store, jwtService
}

func registration(studentID, email string) *dto.RegisterStudentRequest {
	return &dto.RegisterStudentRequest{
		StudentID:      studentID,
		Name:           "Asha Rao",
		Email:          email,
		Password:       "s3cretpass1",
		Course:         "BTech",
		DepartmentCode: "CSE",
	}
}

func TestRegisterAndLoginStudent(t *testing.T) {
	svc, _, jwtService := newAuthService(t)
	ctx := context.Background()

	res, err := svc.RegisterStudent(ctx, registration("S1", "Asha@College.edu"))
	require.NoError(t, err)
	assert.Equal(t, "S1", res.Account.Subject)
	assert.Equal(t, "asha@college.edu", res.Account.Email)
	assert.Equal(t, "Bearer", res.Token.TokenType)
	assert.Equal(t, 3600, res.Token.ExpiresIn)

	claims, err := jwtService.ValidateToken(res.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{Subject: "S1", Role: models.RoleStudent}, claims.Actor())

	login, err := svc.LoginStudent(ctx, &dto.LoginRequest{Email: "asha@college.edu", Password: "s3cretpass1"})
	require.NoError(t, err)
	assert.Equal(t, "S1", login.Account.Subject)

	_, err = svc.LoginStudent(ctx, &dto.LoginRequest{Email: "asha@college.edu", Password: "wrong-pass1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.LoginStudent(ctx, &dto.LoginRequest{Email: "nobody@college.edu", Password: "s3cretpass1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicatesAndUnknownDepartment(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.RegisterStudent(ctx, registration("S1", "asha@college.edu"))
	require.NoError(t, err)

	_, err = svc.RegisterStudent(ctx, registration("S1", "asha@college.edu"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.RegisterStudent(ctx, registration("S2", "asha@college.edu"))
	assert.ErrorIs(t, err, apperrors.ErrConflict, "email is unique")

	req := registration("S3", "s3@college.edu")
	req.DepartmentCode = "XYZ"
	_, err = svc.RegisterStudent(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrReferenceNotFound)
}

func TestRegisterClaimsProfileFromSubmission(t *testing.T) {
	svc, store, _ := newAuthService(t)
	ctx := context.Background()

	_, err := store.Repos().Students.Upsert(ctx, &models.Student{StudentID: "S1", Name: "Asha Rao", Email: "asha@college.edu", Course: "BTech"})
	require.NoError(t, err)

	// a different email cannot take over the profile
	_, err = svc.RegisterStudent(ctx, registration("S1", "other@college.edu"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.RegisterStudent(ctx, registration("S1", "asha@college.edu"))
	require.NoError(t, err)

	_, err = svc.LoginStudent(ctx, &dto.LoginRequest{Email: "asha@college.edu", Password: "s3cretpass1"})
	assert.NoError(t, err)
}

func TestLoginStaffCarriesUnit(t *testing.T) {
	svc, store, jwtService := newAuthService(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("officer-pass1")
	require.NoError(t, err)
	library := models.UnitLibrary
	_, err = store.Repos().Staff.Ensure(ctx, &models.Staff{
		Email:        "library@nodues.app",
		Name:         "Library Officer",
		Role:         models.RoleUnit,
		UnitType:     &library,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	res, err := svc.LoginStaff(ctx, &dto.LoginRequest{Email: "Library@nodues.app", Password: "officer-pass1"})
	require.NoError(t, err)
	assert.Equal(t, "Library", res.Account.Unit)
	assert.Equal(t, string(models.RoleUnit), res.Account.Role)

	claims, err := jwtService.ValidateToken(res.Token.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.Actor().CanActOn(models.UnitLibrary))
	assert.False(t, claims.Actor().CanActOn(models.UnitHostel))

	_, err = svc.LoginStaff(ctx, &dto.LoginRequest{Email: "library@nodues.app", Password: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.LoginStudent(ctx, &dto.LoginRequest{Email: "library@nodues.app", Password: "officer-pass1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "staff accounts cannot log in as students")
}
