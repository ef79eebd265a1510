package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// CreatePlan creates a draft plan owned by the authenticated user.
func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*domain.AuditPlan, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.plans.Create(ctx, &domain.AuditPlan{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(input.Title),
		ScopeType: input.ScopeType,
		Scope:     input.Scope,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Status:    domain.PlanStatusDraft,
		CreatedBy: userID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	s.log.InfoContext(ctx, "plan created",
		slog.String("plan_id", plan.ID.String()),
		slog.String("scope_type", plan.ScopeType.String()),
		slog.String("user_id", userID.String()),
	)
	return plan, nil
}

// GetPlan returns a plan by id.
func (s *Service) GetPlan(ctx context.Context, planID uuid.UUID) (*domain.AuditPlan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

// ListPlans returns a page of plans, newest first, and the total count.
func (s *Service) ListPlans(ctx context.Context, input ListPlansInput) ([]*domain.AuditPlan, int, error) {
	if err := input.Validate(); err != nil {
		return nil, 0, err
	}

	plans, total, err := s.plans.List(ctx, domain.PlanFilter{
		Status: input.Status,
		Limit:  pageLimit(input.Limit),
		Offset: input.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	return plans, total, nil
}

// TransitionPlan moves a plan along its lifecycle. A plan closes only when
// none of its sessions is still open.
func (s *Service) TransitionPlan(ctx context.Context, input TransitionPlanInput) (*domain.AuditPlan, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		plan *domain.AuditPlan
		from domain.PlanStatus
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cur, err := s.plans.GetByIDForUpdate(txCtx, input.PlanID)
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}
		from = cur.Status

		if !cur.Status.CanTransitionTo(input.To) {
			return &domain.TransitionError{Entity: "plan", From: cur.Status.String(), To: input.To.String()}
		}

		if input.To == domain.PlanStatusClosed {
			planID := cur.ID
			_, open, err := s.sessions.List(txCtx, domain.SessionFilter{
				PlanID:   &planID,
				Statuses: openSessionStatuses,
				Limit:    1,
			})
			if err != nil {
				return fmt.Errorf("count open sessions: %w", err)
			}
			if open > 0 {
				return fmt.Errorf("plan %s has %d open sessions: %w", cur.ID, open, domain.ErrConflict)
			}
		}

		plan, err = s.plans.UpdateStatus(txCtx, cur.ID, input.To)
		if err != nil {
			return fmt.Errorf("update plan status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "plan status changed",
		slog.String("plan_id", plan.ID.String()),
		slog.String("from", from.String()),
		slog.String("to", plan.Status.String()),
		slog.String("user_id", userID.String()),
	)
	return plan, nil
}
