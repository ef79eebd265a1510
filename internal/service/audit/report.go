package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

const reportConcurrency = 4

// SessionReport projects the rollup of one session on demand.
func (s *Service) SessionReport(ctx context.Context, sessionID uuid.UUID) (*domain.SessionRollup, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.rollup(ctx, sess)
}

func (s *Service) rollup(ctx context.Context, sess *domain.AuditSession) (*domain.SessionRollup, error) {
	expected, err := s.snapshots.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot: %w", err)
	}
	results, err := s.results.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("list item results: %w", err)
	}
	scanCount, err := s.scans.CountBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("count scans: %w", err)
	}
	discrepancies, err := s.discrepancies.List(ctx, domain.DiscrepancyFilter{SessionID: sess.ID})
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	actions, err := s.actions.List(ctx, domain.ActionFilter{SessionID: sess.ID})
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	r := &domain.SessionRollup{
		SessionID:           sess.ID,
		LocationID:          sess.LocationID,
		Status:              sess.Status,
		ExpectedCount:       len(expected),
		ScanCount:           scanCount,
		DiscrepanciesByType: map[domain.DiscrepancyType]int{},
		ActionsByStatus:     map[domain.ActionStatus]int{},
	}

	isExpected := make(map[int64]bool, len(expected))
	for _, it := range expected {
		isExpected[it.ItemID] = true
	}
	for _, res := range results {
		switch {
		case res.Status == domain.ResultStatusMissing:
			r.Missing++
		case !isExpected[res.ItemID]:
			r.Unexpected++
		case res.Status == domain.ResultStatusFoundInPlace:
			r.FoundInPlace++
		default:
			r.FoundMoved++
		}
	}
	for _, d := range discrepancies {
		r.DiscrepanciesByType[d.Type]++
		if d.IsOpen() {
			r.OpenDiscrepancies++
		}
	}
	for _, a := range actions {
		r.ActionsByStatus[a.Status]++
	}
	r.FoundRate = domain.FoundRate(r.FoundInPlace+r.FoundMoved, r.ExpectedCount)
	return r, nil
}

// PlanReport projects the progress of a plan across its sessions. Canceled
// sessions are listed but excluded from totals. A room is done once its
// session is applied or closed.
func (s *Service) PlanReport(ctx context.Context, planID uuid.UUID) (*domain.PlanReport, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	sessions, _, err := s.sessions.List(ctx, domain.SessionFilter{PlanID: &plan.ID})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	rollups := make([]domain.SessionRollup, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportConcurrency)
	for i, sess := range sessions {
		g.Go(func() error {
			r, err := s.rollup(gctx, sess)
			if err != nil {
				return fmt.Errorf("session %s: %w", sess.ID, err)
			}
			rollups[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &domain.PlanReport{
		Plan:        plan,
		Sessions:    rollups,
		GeneratedAt: s.now(),
	}

	rooms := map[int64]bool{}
	done := map[int64]bool{}
	if plan.ScopeType == domain.ScopeTypeLocation {
		for _, loc := range plan.Scope.LocationIDs {
			rooms[loc] = true
		}
	}
	for _, r := range rollups {
		if r.Status == domain.SessionStatusCanceled {
			continue
		}
		rooms[r.LocationID] = true
		if r.Status == domain.SessionStatusApplied || r.Status == domain.SessionStatusClosed {
			done[r.LocationID] = true
		}
		report.ExpectedTotal += r.ExpectedCount
		report.FoundTotal += r.FoundInPlace + r.FoundMoved
	}
	report.RoomsTotal = len(rooms)
	report.RoomsDone = len(done)
	report.FoundRate = domain.FoundRate(report.FoundTotal, report.ExpectedTotal)
	return report, nil
}
