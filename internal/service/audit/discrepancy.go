package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// ResolveDiscrepancy records an operator decision. Decisions are accepted
// until the session is approved; reopening clears the previous resolution.
func (s *Service) ResolveDiscrepancy(ctx context.Context, input ResolveInput) (*domain.Discrepancy, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	d, err := s.discrepancies.GetByID(ctx, input.DiscrepancyID)
	if err != nil {
		return nil, fmt.Errorf("get discrepancy: %w", err)
	}
	if err := input.validateFor(d.Type); err != nil {
		return nil, err
	}

	var updated *domain.Discrepancy
	err = s.withSessionLock(ctx, d.SessionID, func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			sess, err := s.sessions.GetByIDForUpdate(txCtx, d.SessionID)
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			if !sess.Status.AcceptsResolutions() {
				return &domain.SessionStateError{Op: "resolve discrepancy", Status: sess.Status}
			}

			cur, err := s.discrepancies.GetByIDForUpdate(txCtx, d.ID)
			if err != nil {
				return fmt.Errorf("get discrepancy: %w", err)
			}

			cur.ResolutionStatus = input.Status
			if input.Status == domain.ResolutionOpen {
				cur.Resolution = nil
				cur.ResolvedBy = nil
				cur.ResolvedAt = nil
			} else {
				now := s.now()
				cur.Resolution = &domain.Resolution{
					Decision:    input.Decision,
					Responsible: input.Responsible,
					Note:        strings.TrimSpace(input.Note),
				}
				cur.ResolvedBy = &userID
				cur.ResolvedAt = &now
			}

			updated, err = s.discrepancies.UpdateResolution(txCtx, cur)
			if err != nil {
				return fmt.Errorf("update discrepancy: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "discrepancy resolved",
		slog.String("discrepancy_id", updated.ID.String()),
		slog.String("session_id", updated.SessionID.String()),
		slog.String("type", updated.Type.String()),
		slog.String("status", updated.ResolutionStatus.String()),
		slog.String("user_id", userID.String()),
	)
	return updated, nil
}

// ListDiscrepancies returns the discrepancies of a session.
func (s *Service) ListDiscrepancies(ctx context.Context, input ListDiscrepanciesInput) ([]*domain.Discrepancy, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, input.SessionID); err != nil {
		return nil, err
	}

	list, err := s.discrepancies.List(ctx, domain.DiscrepancyFilter{
		SessionID: input.SessionID,
		Type:      input.Type,
		Status:    input.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	return list, nil
}

// ListResults returns the per-item results of a session.
func (s *Service) ListResults(ctx context.Context, sessionID uuid.UUID) ([]*domain.ItemResult, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	results, err := s.results.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list item results: %w", err)
	}
	return results, nil
}
