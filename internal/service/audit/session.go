package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

// CreateSession opens a draft session for a location. A location has at most
// one open session; a second one fails with a SessionConflictError.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.AuditSession, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var sess *domain.AuditSession
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if input.PlanID != nil {
			plan, err := s.plans.GetByID(txCtx, *input.PlanID)
			if err != nil {
				return fmt.Errorf("get plan: %w", err)
			}
			if !plan.Status.AcceptsSessions() {
				return fmt.Errorf("plan %s is %s and does not accept sessions: %w", plan.ID, plan.Status, domain.ErrConflict)
			}
			if !plan.CoversLocation(input.LocationID) {
				return domain.NewValidationError("location_id", "location is outside the plan scope")
			}
		}

		if err := s.ensureNoOpenSession(txCtx, input.LocationID, uuid.Nil); err != nil {
			return err
		}

		created, err := s.sessions.Create(txCtx, &domain.AuditSession{
			ID:         uuid.New(),
			PlanID:     input.PlanID,
			LocationID: input.LocationID,
			Status:     domain.SessionStatusDraft,
			CreatedBy:  userID,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sess = created
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost a race on the one-open-session index.
		if conflict := s.ensureNoOpenSession(ctx, input.LocationID, uuid.Nil); conflict != nil {
			return nil, conflict
		}
	}
	if err != nil {
		return nil, err
	}

	s.lifecycle(ctx, sess.Status, sess, domain.EventSessionCreated, userID, nil)
	return sess, nil
}

// ensureNoOpenSession fails when locationID has an open session other than self.
func (s *Service) ensureNoOpenSession(ctx context.Context, locationID int64, self uuid.UUID) error {
	open, err := ignoreNotFound(s.sessions.GetOpenByLocation(ctx, locationID))
	if err != nil {
		return fmt.Errorf("get open session: %w", err)
	}
	if open != nil && open.ID != self {
		return &domain.SessionConflictError{LocationID: locationID, SessionID: open.ID}
	}
	return nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error) {
	return s.getSession(ctx, sessionID)
}

// ListSessions returns a page of sessions, newest first, and the total count.
func (s *Service) ListSessions(ctx context.Context, input ListSessionsInput) ([]*domain.AuditSession, int, error) {
	if err := input.Validate(); err != nil {
		return nil, 0, err
	}

	filter := domain.SessionFilter{
		PlanID:     input.PlanID,
		LocationID: input.LocationID,
		Limit:      pageLimit(input.Limit),
		Offset:     input.Offset,
	}
	if input.Status != nil {
		filter.Statuses = []domain.SessionStatus{*input.Status}
	}

	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, total, nil
}

// StartSession moves a draft session to in_progress, building the snapshot
// first when it has not been captured yet.
func (s *Service) StartSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var sess *domain.AuditSession
	err = s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		cur, err := s.getSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransitionTo(domain.SessionStatusInProgress) {
			return &domain.TransitionError{Entity: "session", From: cur.Status.String(), To: domain.SessionStatusInProgress.String()}
		}
		if !cur.HasSnapshot() {
			if _, err := s.buildSnapshot(ctx, cur, userID); err != nil {
				return err
			}
		}

		sess, err = s.updateStatus(ctx, sessionID, domain.SessionStatusInProgress, func(sess *domain.AuditSession) {
			now := s.now()
			sess.StartedBy = &userID
			sess.StartedAt = &now
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle(ctx, domain.SessionStatusDraft, sess, domain.EventSessionStarted, userID, nil)
	return sess, nil
}

// CloseSession freezes scan intake, computes missing items and hands the
// session over for approval. The in_progress -> reconciling step commits on
// its own; if reconciliation fails the session stays reconciling and
// Reclassify finishes the job.
func (s *Service) CloseSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var sess *domain.AuditSession
	err = s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		closed, err := s.updateStatus(ctx, sessionID, domain.SessionStatusReconciling, func(sess *domain.AuditSession) {
			now := s.now()
			sess.ClosedBy = &userID
			sess.ClosedAt = &now
		})
		if err != nil {
			return err
		}
		sess = closed
		s.lifecycle(ctx, domain.SessionStatusInProgress, sess, domain.EventSessionClosed, userID, nil)

		res, err := s.reclassify(ctx, sess)
		if err != nil {
			return fmt.Errorf("reconcile session: %w", err)
		}
		sess = res.Session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ApproveSession approves a session awaiting approval. Open discrepancies
// block approval unless the approver overrides with a reason.
func (s *Service) ApproveSession(ctx context.Context, input ApproveInput) (*domain.AuditSession, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		sess *domain.AuditSession
		open int
	)
	err = s.withSessionLock(ctx, input.SessionID, func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			cur, err := s.sessions.GetByIDForUpdate(txCtx, input.SessionID)
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			if err := transition(cur, domain.SessionStatusApproved); err != nil {
				return err
			}

			open, err = s.discrepancies.CountOpen(txCtx, cur.ID)
			if err != nil {
				return fmt.Errorf("count open discrepancies: %w", err)
			}
			if open > 0 && !input.Override {
				return &domain.OpenDiscrepanciesError{Count: open}
			}

			now := s.now()
			cur.ApprovedBy = &userID
			cur.ApprovedAt = &now
			cur.ApprovalOverride = open > 0
			if reason := strings.TrimSpace(input.Reason); reason != "" {
				cur.ApprovalNote = &reason
			}

			sess, err = s.sessions.Update(txCtx, cur)
			if err != nil {
				return fmt.Errorf("update session: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	var attrs map[string]string
	if sess.ApprovalOverride {
		attrs = map[string]string{"override": "true", "open_discrepancies": fmt.Sprint(open)}
	}
	s.lifecycle(ctx, domain.SessionStatusAwaitingApproval, sess, domain.EventSessionApproved, userID, attrs)
	return sess, nil
}

// FinalizeSession closes an applied session. Closed is terminal.
func (s *Service) FinalizeSession(ctx context.Context, sessionID uuid.UUID) (*domain.AuditSession, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	var sess *domain.AuditSession
	err = s.withSessionLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err = s.updateStatus(ctx, sessionID, domain.SessionStatusClosed, func(sess *domain.AuditSession) {
			now := s.now()
			sess.FinalizedBy = &userID
			sess.FinalizedAt = &now
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle(ctx, domain.SessionStatusApplied, sess, domain.EventSessionFinalized, userID, nil)
	return sess, nil
}

// CancelSession cancels any non-terminal session. History is retained and
// no actions are generated afterwards.
func (s *Service) CancelSession(ctx context.Context, input CancelInput) (*domain.AuditSession, error) {
	userID, err := actorFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var (
		sess *domain.AuditSession
		from domain.SessionStatus
	)
	err = s.withSessionLock(ctx, input.SessionID, func(ctx context.Context) error {
		sess, err = s.updateStatus(ctx, input.SessionID, domain.SessionStatusCanceled, func(sess *domain.AuditSession) {
			from = sess.Status
			now := s.now()
			sess.CanceledBy = &userID
			sess.CanceledAt = &now
			if reason := strings.TrimSpace(input.Reason); reason != "" {
				sess.CancelReason = &reason
			}
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var attrs map[string]string
	if sess.CancelReason != nil {
		attrs = map[string]string{"reason": *sess.CancelReason}
	}
	s.lifecycle(ctx, from, sess, domain.EventSessionCanceled, userID, attrs)
	return sess, nil
}

// updateStatus locks the session row, applies the transition and stamps,
// and persists it in one transaction. mutate sees the pre-transition status.
func (s *Service) updateStatus(ctx context.Context, sessionID uuid.UUID, to domain.SessionStatus, mutate func(*domain.AuditSession)) (*domain.AuditSession, error) {
	var sess *domain.AuditSession
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		cur, err := s.sessions.GetByIDForUpdate(txCtx, sessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		if !cur.Status.CanTransitionTo(to) {
			return &domain.TransitionError{Entity: "session", From: cur.Status.String(), To: to.String()}
		}
		if mutate != nil {
			mutate(cur)
		}
		cur.Status = to

		sess, err = s.sessions.Update(txCtx, cur)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}
