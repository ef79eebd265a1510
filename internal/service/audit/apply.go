package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
)

// ApplySession builds the actions of an approved session if needed and
// delivers every action that is not done yet, each attempted once per run.
// Failed actions are recorded and reported in the summary; the session
// advances to applied only when all actions are done.
func (s *Service) ApplySession(ctx context.Context, sessionID uuid.UUID) (*ApplyResult, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var res *ApplyResult
	err = s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.getSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != domain.SessionStatusApproved {
			return &domain.TransitionError{Entity: "session", From: sess.Status.String(), To: domain.SessionStatusApplied.String()}
		}

		actions, err := s.buildActions(ctx, sess)
		if err != nil {
			return err
		}

		summary, err := s.deliverAll(ctx, sess, actions)
		if err != nil {
			return err
		}
		res = &ApplyResult{Session: sess, Actions: actions, Summary: summary}

		if summary.Failed > 0 {
			s.log.WarnContext(ctx, "session partially applied",
				slog.String("session_id", sess.ID.String()),
				slog.Int("done", summary.Done),
				slog.Int("failed", summary.Failed),
				slog.Int("skipped", summary.Skipped),
			)
			return nil
		}

		applied, err := s.updateStatus(ctx, sess.ID, domain.SessionStatusApplied, func(sess *domain.AuditSession) {
			now := s.now()
			sess.AppliedAt = &now
		})
		if err != nil {
			return err
		}
		res.Session = applied
		s.lifecycle(ctx, domain.SessionStatusApproved, applied, domain.EventSessionApplied, userID, map[string]string{
			"done":    fmt.Sprint(summary.Done),
			"skipped": fmt.Sprint(summary.Skipped),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// deliverAll sends pending, sent and failed actions concurrently and
// replaces each delivered entry of actions with its stored state.
func (s *Service) deliverAll(ctx context.Context, sess *domain.AuditSession, actions []*domain.Action) (ApplySummary, error) {
	var summary ApplySummary
	delivered := make([]bool, len(actions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.ApplyConcurrency, 1))
	for i, a := range actions {
		if !a.Status.NeedsDelivery() {
			continue
		}
		delivered[i] = true
		g.Go(func() error {
			stored, err := s.deliver(gctx, sess, a)
			if err != nil {
				return err
			}
			actions[i] = stored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	for i, a := range actions {
		switch {
		case !delivered[i]:
			summary.Skipped++
		case a.Status == domain.ActionStatusDone:
			summary.Done++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

// deliver makes one attempt. The action is marked sent before the backend
// call so an interrupted run is retried on the next apply. Only storage
// errors are returned; backend failures end up in the action.
func (s *Service) deliver(ctx context.Context, sess *domain.AuditSession, a *domain.Action) (*domain.Action, error) {
	sentAt := s.now()
	a.Status = domain.ActionStatusSent
	a.Attempts++
	a.SentAt = &sentAt
	a.LastError = nil
	sent, err := s.actions.UpdateStatus(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("mark action %s sent: %w", a.ID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ActionTimeout)
	callErr := s.execute(callCtx, sent)
	cancel()

	doneAt := s.now()
	if callErr != nil {
		msg := callErr.Error()
		sent.Status = domain.ActionStatusFailed
		sent.LastError = &msg
	} else {
		sent.Status = domain.ActionStatusDone
		sent.CompletedAt = &doneAt
	}

	stored, err := s.actions.UpdateStatus(ctx, sent)
	if err != nil {
		return nil, fmt.Errorf("record action %s result: %w", a.ID, err)
	}
	telemetry.ActionsTotal.WithLabelValues(stored.Type.String(), stored.Status.String()).Inc()

	if callErr != nil {
		applyErr := &domain.ActionApplyError{ActionID: stored.ID, Err: callErr}
		s.log.WarnContext(ctx, "action failed",
			slog.String("session_id", sess.ID.String()),
			slog.String("action_id", stored.ID.String()),
			slog.String("type", stored.Type.String()),
			slog.Int64("item_id", stored.ItemID),
			slog.Int("attempts", stored.Attempts),
			slog.String("error", applyErr.Error()),
		)
		s.publish(ctx, domain.SessionEvent{
			Type:       domain.EventActionFailed,
			SessionID:  sess.ID,
			PlanID:     sess.PlanID,
			LocationID: sess.LocationID,
			Status:     sess.Status,
			Attributes: map[string]string{
				"action_id":   stored.ID.String(),
				"action_type": stored.Type.String(),
				"item_id":     fmt.Sprint(stored.ItemID),
				"error":       callErr.Error(),
			},
		})
	}
	return stored, nil
}

func (s *Service) execute(ctx context.Context, a *domain.Action) error {
	switch a.Type {
	case domain.ActionMove:
		if a.Payload.ToLocationID == nil {
			return fmt.Errorf("move action without target location")
		}
		return s.inventory.MoveItem(ctx, a.ItemID, *a.Payload.ToLocationID, a.IdempotencyKey)
	case domain.ActionAssignResponsible:
		if a.Payload.ResponsibleUserID == nil {
			return fmt.Errorf("assign action without responsible user")
		}
		return s.inventory.SetResponsible(ctx, a.ItemID, a.Payload.ResponsibleUserID, a.IdempotencyKey)
	case domain.ActionClearResponsible:
		return s.inventory.SetResponsible(ctx, a.ItemID, nil, a.IdempotencyKey)
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}
