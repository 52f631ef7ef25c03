package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/validation"
)

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo repository.ContactRepository
}

// NewContactService creates a ContactService backed by the given repository.
func NewContactService(repo repository.ContactRepository) ContactService {
	return &contactServiceImpl{repo: repo}
}

func (s *contactServiceImpl) Submit(ctx context.Context, in validation.ContactInput) (*model.ContactMessage, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	msg := in.ContactMessage()
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("record contact message: %w", err)
	}
	slog.Info("contact message received", "contact_id", msg.ID)
	return msg, nil
}

func (s *contactServiceImpl) List(ctx context.Context) ([]*model.ContactMessage, error) {
	return s.repo.List(ctx)
}
