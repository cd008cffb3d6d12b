package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexuserp/backend/internal/domain"
)

func sessionState() domain.BusinessState {
	return domain.BusinessState{
		AuditLogs: []domain.AuditEntry{},
		User:      &domain.UserSession{Email: "admin@erp.com", Role: domain.RoleAdmin, IsLoggedIn: true},
	}
}

func TestRecordWithoutSessionIsNoop(t *testing.T) {
	state := domain.BusinessState{AuditLogs: []domain.AuditEntry{{ID: "a"}}}

	got := Record(state, "User Logged In", time.Now())

	assert.Equal(t, state.AuditLogs, got.AuditLogs)
}

func TestRecordPrependsAttributedEntry(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	state := sessionState()
	state.AuditLogs = []domain.AuditEntry{{ID: "old", Action: "older"}}

	got := Record(state, "Settings Updated: VAT Rate 20%", at)

	require.Len(t, got.AuditLogs, 2)
	head := got.AuditLogs[0]
	assert.NotEmpty(t, head.ID)
	assert.Equal(t, "admin@erp.com", head.User)
	assert.Equal(t, "Settings Updated: VAT Rate 20%", head.Action)
	assert.True(t, head.Timestamp.Equal(at))
	assert.Equal(t, "old", got.AuditLogs[1].ID)
	assert.Len(t, state.AuditLogs, 1, "input must not be mutated")
}

func TestRecordDropsOldestBeyondCapacity(t *testing.T) {
	state := sessionState()
	for i := 0; i < MaxEntries+25; i++ {
		state = Record(state, fmt.Sprintf("action %d", i), time.Now())
		require.LessOrEqual(t, len(state.AuditLogs), MaxEntries)
	}

	require.Len(t, state.AuditLogs, MaxEntries)
	assert.Equal(t, fmt.Sprintf("action %d", MaxEntries+24), state.AuditLogs[0].Action)
	assert.Equal(t, "action 25", state.AuditLogs[MaxEntries-1].Action)
}
