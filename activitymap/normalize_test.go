package activitymap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auth "github.com/salesreport/go-auth"
	"github.com/salesreport/go-auth/activitymap"
)

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		event auth.ActivityEventType
		want  activitymap.Outcome
	}{
		{auth.ActivityEventLoginSuccess, activitymap.OutcomeSuccess},
		{auth.ActivityEventLogout, activitymap.OutcomeSuccess},
		{auth.ActivityEventLoginFailure, activitymap.OutcomeFailure},
		{auth.ActivityEventTokenRejected, activitymap.OutcomeFailure},
		{auth.ActivityEventAccessDenied, activitymap.OutcomeDenied},
		{"auth.something.new", activitymap.OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			assert.Equal(t, tt.want, activitymap.OutcomeOf(tt.event))
		})
	}
}

func TestNormalizeAccessDenied(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

	r := activitymap.Normalize(auth.ActivityEvent{
		EventType:   auth.ActivityEventAccessDenied,
		PrincipalID: "3",
		Operation:   string(auth.OperationMetrics),
		Reason:      "insufficient_role",
		OccurredAt:  ts,
	})

	assert.Equal(t, activitymap.Record{
		Event:      auth.ActivityEventAccessDenied,
		Outcome:    activitymap.OutcomeDenied,
		Subject:    "3",
		Operation:  "system.metrics",
		Reason:     "insufficient_role",
		OccurredAt: ts,
	}, r)
}

func TestNormalizeLoginEvents(t *testing.T) {
	failure := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Reason:    "wrong_password",
		Metadata:  map[string]any{"email": " tanaka@example.com "},
	})
	assert.Equal(t, activitymap.OutcomeFailure, failure.Outcome)
	assert.Equal(t, activitymap.Anonymous, failure.Subject)
	assert.Equal(t, "tanaka@example.com", failure.Email)
	assert.Equal(t, "wrong_password", failure.Reason)
	assert.False(t, failure.OccurredAt.IsZero())

	success := activitymap.Normalize(auth.ActivityEvent{
		EventType:   auth.ActivityEventLoginSuccess,
		PrincipalID: "1",
		Metadata:    map[string]any{"role": "admin"},
	})
	assert.Equal(t, activitymap.OutcomeSuccess, success.Outcome)
	assert.Equal(t, "1", success.Subject)
	assert.Equal(t, "admin", success.Role)
	assert.Empty(t, success.Email)
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name  string
		event auth.ActivityEvent
		want  string
	}{
		{"principal id", auth.ActivityEvent{PrincipalID: "2", Actor: auth.ActorRef{ID: "9"}}, "2"},
		{"actor id when principal missing", auth.ActivityEvent{Actor: auth.ActorRef{ID: "9"}}, "9"},
		{"anonymous", auth.ActivityEvent{}, activitymap.Anonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, activitymap.Normalize(tt.event).Subject)
		})
	}
}

func TestRecordFieldsSkipEmpty(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	r := activitymap.Record{
		Event:      auth.ActivityEventLogout,
		Outcome:    activitymap.OutcomeSuccess,
		Subject:    "4",
		OccurredAt: ts,
	}

	assert.Equal(t, []any{"outcome", "success", "subject", "4", "occurred_at", ts}, r.Fields())
}
