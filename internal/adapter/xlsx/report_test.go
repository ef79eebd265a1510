package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

func TestWritePlanReport(t *testing.T) {
	t.Parallel()

	sessionID := uuid.New()
	report := &domain.PlanReport{
		Plan:          &domain.AuditPlan{ID: uuid.New(), Title: "Q1 inventory", Status: domain.PlanStatusActive},
		RoomsTotal:    2,
		RoomsDone:     1,
		ExpectedTotal: 3,
		FoundTotal:    2,
		FoundRate:     decimal.RequireFromString("0.6667"),
		GeneratedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Sessions: []domain.SessionRollup{{
			SessionID:     sessionID,
			LocationID:    10,
			Status:        domain.SessionStatusApplied,
			ExpectedCount: 3,
			FoundInPlace:  1,
			FoundMoved:    1,
			Missing:       1,
			FoundRate:     decimal.RequireFromString("0.6667"),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePlanReport(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Q1 inventory", title)

	rows, err := f.GetRows(sessionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Session", rows[0][0])
	assert.Equal(t, sessionID.String(), rows[1][0])
	assert.Equal(t, "applied", rows[1][2])
	assert.Equal(t, "1", rows[1][6])
}
