package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// BuildActions compiles the resolved discrepancies of an approved session
// into remediation actions. Running it again on an unchanged session yields
// the same idempotency keys and stores nothing new.
func (s *Service) BuildActions(ctx context.Context, sessionID uuid.UUID) ([]*domain.Action, error) {
	if _, err := actorFromCtx(ctx); err != nil {
		return nil, err
	}

	var actions []*domain.Action
	err := s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.getSession(ctx, sessionID)
		if err != nil {
			return err
		}
		actions, err = s.buildActions(ctx, sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// buildActions requires the session lock.
func (s *Service) buildActions(ctx context.Context, sess *domain.AuditSession) ([]*domain.Action, error) {
	if err := requireStatus("build actions", sess, domain.SessionStatusApproved); err != nil {
		return nil, err
	}

	resolved := domain.ResolutionResolved
	discrepancies, err := s.discrepancies.List(ctx, domain.DiscrepancyFilter{SessionID: sess.ID, Status: &resolved})
	if err != nil {
		return nil, fmt.Errorf("list resolved discrepancies: %w", err)
	}

	compiled, err := compileActions(sess.ID, discrepancies)
	if err != nil {
		return nil, err
	}

	created := 0
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.now()
		for _, a := range compiled {
			a.CreatedAt = now
			_, isNew, err := s.actions.Insert(txCtx, a)
			if err != nil {
				return fmt.Errorf("insert action: %w", err)
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	actions, err := s.actions.List(ctx, domain.ActionFilter{SessionID: sess.ID})
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	s.log.InfoContext(ctx, "actions built",
		slog.String("session_id", sess.ID.String()),
		slog.Int("resolved_discrepancies", len(discrepancies)),
		slog.Int("created", created),
		slog.Int("total", len(actions)),
	)
	return actions, nil
}

type actionSlot struct {
	itemID int64
	group  string
}

// compileActions is pure. Relocations become moves and responsible changes
// become assign/clear actions. Two discrepancies asking for different
// targets of the same kind on one item are rejected.
func compileActions(sessionID uuid.UUID, discrepancies []*domain.Discrepancy) ([]*domain.Action, error) {
	var (
		out   []*domain.Action
		seen  = map[string]bool{}
		slots = map[actionSlot]string{}
	)

	add := func(d *domain.Discrepancy, t domain.ActionType, group string, p domain.ActionPayload) error {
		itemID := *d.ItemID
		key := domain.ActionKey(sessionID, itemID, t, p)
		slot := actionSlot{itemID: itemID, group: group}
		if prev, ok := slots[slot]; ok && prev != key {
			return domain.NewValidationError("discrepancy_id",
				fmt.Sprintf("discrepancy %s conflicts with another %s decision for item %d", d.ID, group, itemID))
		}
		slots[slot] = key
		if seen[key] {
			return nil
		}
		seen[key] = true
		out = append(out, &domain.Action{
			ID:             uuid.New(),
			SessionID:      sessionID,
			DiscrepancyID:  d.ID,
			ItemID:         itemID,
			Type:           t,
			Payload:        p,
			Status:         domain.ActionStatusPending,
			IdempotencyKey: key,
		})
		return nil
	}

	for _, d := range discrepancies {
		if d.ResolutionStatus != domain.ResolutionResolved || d.Resolution == nil || d.ItemID == nil {
			continue
		}
		r := d.Resolution

		if r.Decision == domain.DecisionRelocate && d.FoundLocationID != nil {
			to := *d.FoundLocationID
			if err := add(d, domain.ActionMove, "location", domain.ActionPayload{ToLocationID: &to}); err != nil {
				return nil, err
			}
		}

		if r.Responsible != nil {
			if r.Responsible.UserID != nil {
				user := *r.Responsible.UserID
				err := add(d, domain.ActionAssignResponsible, "responsible", domain.ActionPayload{ResponsibleUserID: &user})
				if err != nil {
					return nil, err
				}
			} else if err := add(d, domain.ActionClearResponsible, "responsible", domain.ActionPayload{}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// ListActions returns the actions of a session.
func (s *Service) ListActions(ctx context.Context, input ListActionsInput) ([]*domain.Action, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, input.SessionID); err != nil {
		return nil, err
	}
	actions, err := s.actions.List(ctx, domain.ActionFilter{SessionID: input.SessionID, Statuses: input.Statuses})
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}
