package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// ErrUsernameTaken is returned when creating a user whose username exists.
var ErrUsernameTaken = errors.New("username already taken")

// UserService manages operator accounts.
type UserService interface {
	// Create stores a user with a bcrypt hash of password.
	Create(ctx context.Context, username, password string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
	cost int
}

// NewUserService creates a UserService using bcrypt.DefaultCost.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *userService) Create(ctx context.Context, username, password string) (*model.User, error) {
	in := validation.UserInput{Username: strings.TrimSpace(username), Password: password}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	username = in.Username

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{Username: username, Password: string(hash)}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.repo.GetByUsername(ctx, username)
}
