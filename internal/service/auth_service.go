package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/opsdesk/opsdesk/internal/auth"
	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/repository"
)

// Profile bundles a user with their role-specific record. Client and
// Technician are mutually exclusive and both nil for admins or for accounts
// whose profile row is missing.
type Profile struct {
	User       *models.User       `json:"user"`
	Client     *models.Client     `json:"client,omitempty"`
	Technician *models.Technician `json:"technician,omitempty"`
}

// CreateUserInput is the admin-facing account creation request.
type CreateUserInput struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FullName  string  `json:"fullName"`
	Role      string  `json:"role"`
	CompanyID *string `json:"companyId,omitempty"`

	// Client profile fields.
	LocationID *string `json:"locationId,omitempty"`
	JobTitle   *string `json:"jobTitle,omitempty"`
	Phone      *string `json:"phone,omitempty"`

	// Technician profile fields.
	Specialization *string `json:"specialization,omitempty"`
}

// AuthService handles login, profile resolution and admin account creation.
type AuthService struct {
	users     repository.UserRepository
	directory repository.DirectoryRepository
	jwt       *auth.JWTManager
	logger    *log.Logger
}

func NewAuthService(users repository.UserRepository, directory repository.DirectoryRepository, jwt *auth.JWTManager, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{users: users, directory: directory, jwt: jwt, logger: logger}
}

// Login verifies credentials and issues a signed token. Unknown email and
// wrong password both map to ErrInvalidCredentials so the response does not
// reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

// GetProfile returns the user and, where one exists, the role-specific
// record. A missing client or technician row is a soft condition: the
// account still works, the profile field stays nil.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	switch user.Role {
	case models.RoleClient:
		client, err := s.directory.GetClientByUserID(ctx, user.ID)
		if err == nil {
			profile.Client = client
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	case models.RoleTechnician:
		tech, err := s.directory.GetTechnicianByUserID(ctx, user.ID)
		if err == nil {
			profile.Technician = tech
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return profile, nil
}

// CreateUser is the admin operation behind user provisioning. An existing
// account with the same email is updated in place rather than duplicated.
// For client and technician roles the matching profile row is created when
// one is absent.
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*Profile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.FullName == "" || !models.ValidRole(in.Role) {
		return nil, ErrInvalidInput
	}
	if in.Role == models.RoleClient && (in.CompanyID == nil || *in.CompanyID == "") {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		user.FullName = in.FullName
		user.Role = in.Role
		user.CompanyID = in.CompanyID
		if in.Password != "" {
			hash, err := auth.HashPassword(in.Password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = hash
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		if in.Password == "" {
			return nil, ErrInvalidInput
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user = &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			FullName:     in.FullName,
			Role:         in.Role,
			CompanyID:    in.CompanyID,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.ensureProfile(ctx, user, in); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, user.ID)
}

func (s *AuthService) ensureProfile(ctx context.Context, user *models.User, in CreateUserInput) error {
	switch user.Role {
	case models.RoleClient:
		_, err := s.directory.GetClientByUserID(ctx, user.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		client := &models.Client{
			UserID:     user.ID,
			CompanyID:  *user.CompanyID,
			LocationID: in.LocationID,
			JobTitle:   in.JobTitle,
			Phone:      in.Phone,
		}
		return s.directory.CreateClient(ctx, client)
	case models.RoleTechnician:
		_, err := s.directory.GetTechnicianByUserID(ctx, user.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		tech := &models.Technician{
			UserID:         user.ID,
			Specialization: in.Specialization,
			Phone:          in.Phone,
		}
		return s.directory.CreateTechnician(ctx, tech)
	}
	return nil
}

// ListUsers returns every account, admin view.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}
