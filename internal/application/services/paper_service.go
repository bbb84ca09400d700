package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/ports"
)

// PaperService handles past-paper metadata operations
type PaperService struct {
	paperRepo ports.PaperRepository
	logger    *logger.Logger
}

// NewPaperService creates a new paper service
func NewPaperService(paperRepo ports.PaperRepository, logger *logger.Logger) *PaperService {
	return &PaperService{
		paperRepo: paperRepo,
		logger:    logger,
	}
}

// CreatePaper registers new past-paper metadata
func (s *PaperService) CreatePaper(ctx context.Context, req ports.CreatePaperRequest, uploadedBy uuid.UUID) (*entities.Paper, error) {
	paper := &entities.Paper{
		ID:          uuid.New(),
		SubjectID:   req.SubjectID,
		Year:        req.Year,
		Session:     req.Session,
		PaperNumber: req.PaperNumber,
		Title:       req.Title,
		DownloadURL: req.DownloadURL,
		UploadedBy:  &uploadedBy,
	}

	if err := s.paperRepo.Create(ctx, paper); err != nil {
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	s.logger.Info("Paper created successfully", "paper_id", paper.ID, "title", paper.Title)

	return paper, nil
}

// GetPaper retrieves a paper by ID
func (s *PaperService) GetPaper(ctx context.Context, id uuid.UUID) (*entities.Paper, error) {
	paper, err := s.paperRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return paper, nil
}

// ListPapers retrieves papers with filtering and pagination
func (s *PaperService) ListPapers(ctx context.Context, filter ports.PaperFilter) ([]*entities.Paper, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	papers, err := s.paperRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}

	total, err := s.paperRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	return papers, total, nil
}

// DeletePaper removes past-paper metadata
func (s *PaperService) DeletePaper(ctx context.Context, id uuid.UUID) error {
	if err := s.paperRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Paper deleted successfully", "paper_id", id)

	return nil
}
