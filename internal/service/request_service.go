package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/communityportal/backend/internal/model"
	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/upload"
	"github.com/communityportal/backend/internal/validation"
)

// FileIntake stores request attachments all-or-nothing.
type FileIntake interface {
	Store(ctx context.Context, files []upload.File) ([]string, error)
	Discard(ctx context.Context, urls []string)
}

// RequestService handles help request submissions.
type RequestService interface {
	// Submit validates in, stores files and records the submission. Files are
	// removed again when the record cannot be written.
	Submit(ctx context.Context, in validation.RequestInput, files []upload.File) (*model.RequestSubmission, error)
	// List returns every submission, most recent first.
	List(ctx context.Context) ([]*model.RequestSubmission, error)
}

type requestService struct {
	repo   repository.RequestRepository
	intake FileIntake
}

// NewRequestService creates a RequestService.
func NewRequestService(repo repository.RequestRepository, intake FileIntake) RequestService {
	return &requestService{repo: repo, intake: intake}
}

func (s *requestService) Submit(ctx context.Context, in validation.RequestInput, files []upload.File) (*model.RequestSubmission, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	urls, err := s.intake.Store(ctx, files)
	if err != nil {
		return nil, err
	}

	sub := in.Submission(urls)
	if err := s.repo.Create(ctx, sub); err != nil {
		s.intake.Discard(ctx, urls)
		return nil, fmt.Errorf("record request submission: %w", err)
	}
	slog.Info("request submitted", "request_id", sub.ID, "request_type", sub.RequestType, "files", len(urls))
	return sub, nil
}

func (s *requestService) List(ctx context.Context) ([]*model.RequestSubmission, error) {
	return s.repo.List(ctx)
}
