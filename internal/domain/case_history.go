package domain

import "time"

// HistoryAction captures what kind of mutation a history event records.
type HistoryAction string

const (
	HistoryActionCreate  HistoryAction = "CREATE"
	HistoryActionUpdate  HistoryAction = "UPDATE"
	HistoryActionDelete  HistoryAction = "DELETE"
	HistoryActionSLAAuto HistoryAction = "SLA_AUTO"
)

// HistoryEvent is an immutable audit trail entry. CaseID is a weak
// reference; events outlive the case they describe.
type HistoryEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    HistoryAction     `json:"action"`
	CaseID    string            `json:"caseId"`
	Before    *Case             `json:"before"`
	After     *Case             `json:"after"`
	Meta      map[string]string `json:"meta"`
}
