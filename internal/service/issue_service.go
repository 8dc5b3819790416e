package service

import (
	"context"
	"fmt"

	"fulfillment/internal/model"
	"fulfillment/internal/repository"
	ws "fulfillment/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs
type IssueLineRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	DefectQty int    `json:"defect_qty"`
}

type SubmitIssueRequest struct {
	Remarks string             `json:"remarks" binding:"required"`
	Lines   []IssueLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type ResolveIssueRequest struct {
	ResolutionStatus string `json:"resolution_status" binding:"required,oneof='Offset Product' 'Replaced Product'"`
}

type IssueLineResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ShippedQty  int    `json:"shipped_qty"`
	DefectQty   int    `json:"defect_qty"`
	DefectValue string `json:"defect_value"`
}

type IssueResponse struct {
	ID               string              `json:"id"`
	DeliveryID       string              `json:"delivery_id"`
	Remarks          string              `json:"remarks"`
	ResolutionStatus string              `json:"resolution_status"`
	Lines            []IssueLineResponse `json:"lines"`
	TotalDefects     int                 `json:"total_defects"`
	DefectValue      string              `json:"defect_value"`
	CreatedAt        string              `json:"created_at"`
	ResolvedAt       *string             `json:"resolved_at"`
}

type IssueService interface {
	SubmitIssue(ctx context.Context, actor, deliveryID string, req SubmitIssueRequest) (IssueResponse, error)
	ResolveIssue(ctx context.Context, actor, id string, req ResolveIssueRequest) (IssueResponse, error)
	GetIssue(ctx context.Context, id string) (IssueResponse, error)
	ListIssues(ctx context.Context, deliveryID string, page, limit int) ([]IssueResponse, int64, error)
}

type issueService struct {
	issueRepo    repository.IssueRepository
	deliveryRepo repository.DeliveryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	log          *zap.Logger
	now          Clock
}

func NewIssueService(
	issueRepo repository.IssueRepository,
	deliveryRepo repository.DeliveryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
	now Clock,
) IssueService {
	return &issueService{
		issueRepo:    issueRepo,
		deliveryRepo: deliveryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       publisherOrNoop(events),
		log:          log,
		now:          clockOrNow(now),
	}
}

// SubmitIssue records a defect claim. The delivery, its order and any
// inventory are left untouched.
func (s *issueService) SubmitIssue(ctx context.Context, actor, deliveryID string, req SubmitIssueRequest) (IssueResponse, error) {
	dID, err := parseID("delivery_id", deliveryID)
	if err != nil {
		return IssueResponse{}, err
	}
	inputs := make([]model.IssueLineInput, 0, len(req.Lines))
	for i, l := range req.Lines {
		pID, err := parseID(fmt.Sprintf("lines[%d].product_id", i), l.ProductID)
		if err != nil {
			return IssueResponse{}, err
		}
		inputs = append(inputs, model.IssueLineInput{ProductID: pID, DefectQty: l.DefectQty})
	}

	var issue *model.Issue
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		delivery, err := s.deliveryRepo.FindByIDWithLines(txCtx, dID)
		if err != nil {
			return fmt.Errorf("failed to load delivery: %w", err)
		}
		issue, err = model.NewIssue(delivery, inputs, req.Remarks)
		if err != nil {
			return err
		}
		if err := s.issueRepo.Create(txCtx, issue); err != nil {
			return fmt.Errorf("failed to create issue: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionSubmitIssue, issue.ID.String(), delivery.CounterpartyName, map[string]interface{}{
			"delivery_id":   dID.String(),
			"total_defects": issue.TotalDefects(),
			"defect_value":  money(issue.DefectValue()),
		})
	})
	if err != nil {
		return IssueResponse{}, err
	}

	logFor(ctx, s.log).Info("issue submitted",
		zap.String("issue_id", issue.ID.String()),
		zap.String("delivery_id", dID.String()),
		zap.Int("total_defects", issue.TotalDefects()),
	)
	res := toIssueResponse(issue)
	s.events.Publish(ws.EventIssueSubmitted, res)
	return res, nil
}

func (s *issueService) ResolveIssue(ctx context.Context, actor, id string, req ResolveIssueRequest) (IssueResponse, error) {
	issueID, err := parseID("id", id)
	if err != nil {
		return IssueResponse{}, err
	}

	var issue *model.Issue
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		issue, err = s.issueRepo.FindByIDWithLines(txCtx, issueID)
		if err != nil {
			return fmt.Errorf("failed to load issue: %w", err)
		}
		if err := issue.Resolve(model.IssueStatus(req.ResolutionStatus), s.now().UTC()); err != nil {
			return err
		}
		if err := s.issueRepo.UpdateResolution(txCtx, issue.ID, issue.ResolutionStatus, *issue.ResolvedAt); err != nil {
			return fmt.Errorf("failed to resolve issue: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionResolveIssue, issue.ID.String(), string(issue.ResolutionStatus), nil)
	})
	if err != nil {
		return IssueResponse{}, err
	}

	res := toIssueResponse(issue)
	s.events.Publish(ws.EventIssueResolved, res)
	return res, nil
}

func (s *issueService) GetIssue(ctx context.Context, id string) (IssueResponse, error) {
	issueID, err := parseID("id", id)
	if err != nil {
		return IssueResponse{}, err
	}
	issue, err := s.issueRepo.FindByIDWithLines(ctx, issueID)
	if err != nil {
		return IssueResponse{}, fmt.Errorf("failed to load issue: %w", err)
	}
	return toIssueResponse(issue), nil
}

func (s *issueService) ListIssues(ctx context.Context, deliveryID string, page, limit int) ([]IssueResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	var filter *uuid.UUID
	if deliveryID != "" {
		dID, err := parseID("delivery_id", deliveryID)
		if err != nil {
			return nil, 0, err
		}
		filter = &dID
	}
	issues, total, err := s.issueRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list issues: %w", err)
	}
	res := make([]IssueResponse, 0, len(issues))
	for i := range issues {
		res = append(res, toIssueResponse(&issues[i]))
	}
	return res, total, nil
}

func toIssueResponse(i *model.Issue) IssueResponse {
	res := IssueResponse{
		ID:               i.ID.String(),
		DeliveryID:       i.DeliveryID.String(),
		Remarks:          i.Remarks,
		ResolutionStatus: string(i.ResolutionStatus),
		Lines:            make([]IssueLineResponse, 0, len(i.Lines)),
		TotalDefects:     i.TotalDefects(),
		DefectValue:      money(i.DefectValue()),
		CreatedAt:        i.CreatedAt.Format(dateTimeLayout),
		ResolvedAt:       formatDateTime(i.ResolvedAt),
	}
	for _, l := range i.Lines {
		res.Lines = append(res.Lines, IssueLineResponse{
			ProductID:   l.ProductID.String(),
			ProductName: l.ProductName,
			ShippedQty:  l.ShippedQty,
			DefectQty:   l.DefectQty,
			DefectValue: money(l.DefectValue()),
		})
	}
	return res
}
