package models

import "time"

// AuditEntry is one row of the audit trail, written after a successful
// state transition (never in the same write as the transition itself).
type AuditEntry struct {
	ID        string            `json:"id" dynamodbav:"id"`
	Action    string            `json:"action" dynamodbav:"action"`
	ActorID   string            `json:"actor_id" dynamodbav:"actor_id"`
	SubjectID string            `json:"subject_id" dynamodbav:"subject_id"`
	Detail    map[string]string `json:"detail,omitempty" dynamodbav:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at" dynamodbav:"created_at"`
}
