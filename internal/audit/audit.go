// Package audit maintains the bounded, newest-first action log carried inside
// the business state.
package audit

import (
	"time"

	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/xid"
)

// MaxEntries is the log capacity. Older entries are dropped first.
const MaxEntries = 100

// Record returns state with a new entry attributed to the active session
// prepended to its audit log. Without a session, state is returned unchanged.
// The input's audit slice is never modified.
func Record(state domain.BusinessState, action string, at time.Time) domain.BusinessState {
	if state.User == nil {
		return state
	}

	entry := domain.AuditEntry{
		ID:        xid.New("audit"),
		User:      state.User.Email,
		Action:    action,
		Timestamp: at.UTC(),
	}

	size := len(state.AuditLogs) + 1
	if size > MaxEntries {
		size = MaxEntries
	}
	logs := make([]domain.AuditEntry, 0, size)
	logs = append(logs, entry)
	logs = append(logs, state.AuditLogs[:size-1]...)

	state.AuditLogs = logs
	return state
}
