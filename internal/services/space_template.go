package services

import (
	"context"
	"fmt"

	"velvetden/internal/domain"
)

type spaceTemplateService struct {
	repo domain.SpaceTemplateRepository
}

// NewSpaceTemplateService creates a SpaceTemplateService over the template catalog.
func NewSpaceTemplateService(repo domain.SpaceTemplateRepository) domain.SpaceTemplateService {
	return &spaceTemplateService{repo: repo}
}

func (s *spaceTemplateService) ListTemplates(ctx context.Context) ([]*domain.SpaceTemplate, error) {
	templates, err := s.repo.ListByName(ctx)
	if err != nil {
		return nil, fmt.Errorf("list space templates: %w", err)
	}
	return templates, nil
}

func (s *spaceTemplateService) GetTemplate(ctx context.Context, id string) (*domain.SpaceTemplate, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrTemplateNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// GetTemplatesByIDs returns the templates for ids, failing with ErrUnknownTemplate
// unless every id names a template.
func (s *spaceTemplateService) GetTemplatesByIDs(ctx context.Context, ids []string) ([]*domain.SpaceTemplate, error) {
	for _, id := range ids {
		if !domain.ValidID(id) {
			return nil, domain.ErrUnknownTemplate
		}
	}
	templates, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load space templates: %w", err)
	}
	if len(templates) != len(ids) {
		return nil, domain.ErrUnknownTemplate
	}
	return templates, nil
}
