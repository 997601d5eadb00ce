// Package identity manages application users and their roles. Users belong
// to exactly one tenant and live in the base database; all lookups run
// through a tenant scope, so one tenant can never see another's users.
package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/model"
	"github.com/erickcastrillo/diquis/internal/scope"
)

var (
	// ErrEmailTaken is returned when the email is already registered in the tenant.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// Service implements the identity provider contract.
type Service struct {
	manager *database.Manager
}

// NewService creates an identity Service.
func NewService(manager *database.Manager) *Service {
	return &Service{manager: manager}
}

func (s *Service) base(ctx context.Context, sc scope.Scope) (*gorm.DB, error) {
	return s.manager.Base(scope.NewContext(ctx, sc))
}

// CreateUser hashes the password and inserts the user into the scope's
// tenant. Email uniqueness is enforced per tenant.
func (s *Service) CreateUser(ctx context.Context, sc scope.Scope, user *model.User, password string) error {
	db, err := s.base(ctx, sc)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail looks a user up inside the scope's tenant.
func (s *Service) FindByEmail(ctx context.Context, sc scope.Scope, email string) (*model.User, error) {
	db, err := s.base(ctx, sc)
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// AddToRole grants a role to a user within the scope's tenant. Granting an
// already-held role is a no-op, which keeps provisioning retries safe.
func (s *Service) AddToRole(ctx context.Context, sc scope.Scope, userID uint, role string) error {
	db, err := s.base(ctx, sc)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check role: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := db.Create(&model.UserRole{UserID: userID, Role: role}).Error; err != nil {
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}

// GetRoles returns the roles held by a user within the scope's tenant.
func (s *Service) GetRoles(ctx context.Context, sc scope.Scope, userID uint) ([]string, error) {
	db, err := s.base(ctx, sc)
	if err != nil {
		return nil, err
	}

	var roles []string
	if err := db.Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error; err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	return roles, nil
}

// VerifyPassword checks a candidate password against the stored hash.
func (s *Service) VerifyPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
