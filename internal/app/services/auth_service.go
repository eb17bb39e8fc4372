package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/nodues/internal/app/models"
	"github.com/yigit/nodues/internal/app/models/dto"
	"github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/auth"
)

// AuthService handles registration and login of students and staff
type AuthService struct {
	store      repositories.Store
	references ReferenceLookup
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	store repositories.Store,
	references ReferenceLookup,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		store:      store,
		references: references,
		jwtService: jwtService,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterStudent creates a student account. A student who already exists
// from an earlier form submission claims the profile when the email matches
// and no password is set yet.
func (s *AuthService) RegisterStudent(ctx context.Context, req *dto.RegisterStudentRequest) (*dto.AuthResponse, error) {
	studentID := strings.TrimSpace(req.StudentID)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if code := strings.TrimSpace(req.DepartmentCode); code != "" {
		ok, err := s.references.DepartmentExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewReferenceNotFoundError("department", code)
		}
	}
	if code := strings.TrimSpace(req.HostelCode); code != "" {
		ok, err := s.references.HostelExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewReferenceNotFoundError("hostel", code)
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var student *models.Student
	err = s.store.WithTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		existing, err := repos.Students.FindByKey(ctx, studentID)
		switch {
		case err == nil:
			if existing.PasswordHash != nil || !strings.EqualFold(existing.Email, email) {
				return apperrors.NewConflictError("Student ID already registered").
					WithDetails(map[string]interface{}{"studentId": studentID})
			}
			student = existing
			return repos.Students.SetPassword(ctx, studentID, hash)
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		student = &models.Student{
			StudentID:      studentID,
			Name:           strings.TrimSpace(req.Name),
			Email:          email,
			Course:         strings.TrimSpace(req.Course),
			DepartmentCode: optionalString(req.DepartmentCode),
			HostelCode:     optionalString(req.HostelCode),
			IsHosteler:     strings.TrimSpace(req.HostelCode) != "",
			PasswordHash:   &hash,
		}
		return repos.Students.Register(ctx, student)
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("studentId", studentID).Msg("Student registration failed")
		return nil, err
	}

	s.logger.Info().Str("studentId", studentID).Msg("Student registered")
	return s.issue(models.Actor{Subject: student.StudentID, Role: models.RoleStudent}, dto.AccountResponse{
		Subject: student.StudentID,
		Name:    student.Name,
		Email:   student.Email,
		Role:    string(models.RoleStudent),
	})
}

// LoginStudent authenticates a student by email and password
func (s *AuthService) LoginStudent(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	student, err := s.store.Repos().Students.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if student.PasswordHash == nil || !auth.CheckPassword(*student.PasswordHash, req.Password) {
		s.logger.Debug().Str("studentId", student.StudentID).Msg("Invalid student credentials")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(models.Actor{Subject: student.StudentID, Role: models.RoleStudent}, dto.AccountResponse{
		Subject: student.StudentID,
		Name:    student.Name,
		Email:   student.Email,
		Role:    string(models.RoleStudent),
	})
}

// LoginStaff authenticates an admin or unit officer
func (s *AuthService) LoginStaff(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	staff, err := s.store.Repos().Staff.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(staff.PasswordHash, req.Password) {
		s.logger.Debug().Str("email", staff.Email).Msg("Invalid staff credentials")
		return nil, apperrors.ErrInvalidCredentials
	}

	actor := models.Actor{Subject: staff.Email, Role: staff.Role}
	account := dto.AccountResponse{
		Subject: staff.Email,
		Name:    staff.Name,
		Email:   staff.Email,
		Role:    string(staff.Role),
	}
	if staff.UnitType != nil {
		actor.Unit = *staff.UnitType
		account.Unit = string(*staff.UnitType)
	}
	return s.issue(actor, account)
}

func (s *AuthService) issue(actor models.Actor, account dto.AccountResponse) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateToken(actor)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		Account: account,
	}, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
