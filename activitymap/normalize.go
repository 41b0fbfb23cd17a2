// Package activitymap flattens auth activity events into audit records.
package activitymap

import (
	"strings"
	"time"

	auth "github.com/salesreport/go-auth"
)

// Outcome classifies what an event means for the caller.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Anonymous is the subject of events raised before a principal is known.
const Anonymous = "anonymous"

// Record is the flat audit shape of one auth activity event.
type Record struct {
	Event      auth.ActivityEventType `json:"event"`
	Outcome    Outcome                `json:"outcome"`
	Subject    string                 `json:"subject"`
	Operation  string                 `json:"operation,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Email      string                 `json:"email,omitempty"`
	Role       string                 `json:"role,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// OutcomeOf maps an event type to its outcome. Unknown types count as
// success so new informational events never raise alarms.
func OutcomeOf(t auth.ActivityEventType) Outcome {
	switch t {
	case auth.ActivityEventLoginFailure, auth.ActivityEventTokenRejected:
		return OutcomeFailure
	case auth.ActivityEventAccessDenied:
		return OutcomeDenied
	default:
		return OutcomeSuccess
	}
}

// Normalize converts an event into a Record.
func Normalize(event auth.ActivityEvent) Record {
	subject := strings.TrimSpace(event.PrincipalID)
	if subject == "" {
		subject = strings.TrimSpace(event.Actor.ID)
	}
	if subject == "" {
		subject = Anonymous
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Record{
		Event:      event.EventType,
		Outcome:    OutcomeOf(event.EventType),
		Subject:    subject,
		Operation:  strings.TrimSpace(event.Operation),
		Reason:     strings.TrimSpace(event.Reason),
		Email:      metadataString(event.Metadata, "email"),
		Role:       metadataString(event.Metadata, "role"),
		OccurredAt: occurredAt,
	}
}

// Fields returns r as logger key/value pairs. Empty optional fields are left out.
func (r Record) Fields() []any {
	fields := []any{
		"outcome", string(r.Outcome),
		"subject", r.Subject,
	}
	for _, kv := range [][2]string{
		{"operation", r.Operation},
		{"reason", r.Reason},
		{"email", r.Email},
		{"role", r.Role},
	} {
		if kv[1] != "" {
			fields = append(fields, kv[0], kv[1])
		}
	}
	return append(fields, "occurred_at", r.OccurredAt)
}

func metadataString(md map[string]any, key string) string {
	v, _ := md[key].(string)
	return strings.TrimSpace(v)
}
