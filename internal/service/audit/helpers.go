package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
	"github.com/heartmarshall/inventory-audit-backend/pkg/ctxutil"
)

// openSessionStatuses are the non-terminal session statuses.
var openSessionStatuses = []domain.SessionStatus{
	domain.SessionStatusDraft,
	domain.SessionStatusInProgress,
	domain.SessionStatusReconciling,
	domain.SessionStatusAwaitingApproval,
	domain.SessionStatusApproved,
	domain.SessionStatusApplied,
}

func sessionLockKey(sessionID uuid.UUID) string {
	return "audit:session:" + sessionID.String()
}

func actorFromCtx(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}

// withSessionLock serializes fn with every other mutation of the session.
func (s *Service) withSessionLock(ctx context.Context, sessionID uuid.UUID, fn func(ctx context.Context) error) error {
	release, err := s.locks.Lock(ctx, sessionLockKey(sessionID))
	if err != nil {
		return fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer release()
	return fn(ctx)
}

// transition moves sess to the target status or fails with a TransitionError.
func transition(sess *domain.AuditSession, to domain.SessionStatus) error {
	if !sess.Status.CanTransitionTo(to) {
		return &domain.TransitionError{Entity: "session", From: sess.Status.String(), To: to.String()}
	}
	sess.Status = to
	return nil
}

func requireStatus(op string, sess *domain.AuditSession, allowed ...domain.SessionStatus) error {
	for _, st := range allowed {
		if sess.Status == st {
			return nil
		}
	}
	return &domain.SessionStateError{Op: op, Status: sess.Status}
}

// lifecycle records a committed status change: metric, log line and event.
func (s *Service) lifecycle(ctx context.Context, from domain.SessionStatus, sess *domain.AuditSession, evType domain.EventType, actor uuid.UUID, attrs map[string]string) {
	if from != sess.Status {
		telemetry.SessionTransitionsTotal.WithLabelValues(from.String(), sess.Status.String()).Inc()
	}

	s.log.InfoContext(ctx, evType.String(),
		slog.String("session_id", sess.ID.String()),
		slog.Int64("location_id", sess.LocationID),
		slog.String("from", from.String()),
		slog.String("to", sess.Status.String()),
		slog.String("user_id", actor.String()),
	)

	s.publish(ctx, domain.SessionEvent{
		Type:       evType,
		SessionID:  sess.ID,
		PlanID:     sess.PlanID,
		LocationID: sess.LocationID,
		Status:     sess.Status,
		ActorID:    actor,
		Attributes: attrs,
	})
}

// publish sends e after commit. Failures are logged and never reach the caller.
func (s *Service) publish(ctx context.Context, e domain.SessionEvent) {
	e.ID = uuid.New()
	e.OccurredAt = s.now()
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WarnContext(ctx, "publish event failed",
			slog.String("event_type", e.Type.String()),
			slog.String("session_id", e.SessionID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// getSession wraps the repository lookup with the operation name.
func (s *Service) getSession(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func ignoreNotFound[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
