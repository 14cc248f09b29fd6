package service

import (
	"context"

	"github.com/xGerart/odoo-sync-backend/internal/entity"
	"github.com/xGerart/odoo-sync-backend/internal/repository"
)

// HistoryService is the read side of the sync archive. Snapshots are
// written exclusively by the sync path and never mutated here.
type HistoryService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) List(ctx context.Context, params repository.HistoryListParams) ([]entity.SyncHistory, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *HistoryService) Get(ctx context.Context, id string) (*entity.SyncHistory, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return record, nil
}
