package service

import (
	"context"
	"fmt"

	"fulfillment/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, entityID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs pages through the trail newest first, optionally for one entity
func (s *auditService) GetAuditLogs(ctx context.Context, entityID string, page, limit int) ([]AuditLogResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	logs, total, err := s.auditRepo.List(ctx, entityID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			Actor:      l.Actor,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(dateTimeLayout),
		})
	}
	return res, total, nil
}
