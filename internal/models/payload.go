package models

// StepPayload is the event payload threaded through a pipeline chain. The
// bucket identifies the top-level task whose lease spans the whole chain;
// the remaining fields carry step-specific references.
type StepPayload struct {
	Bucket        TaskType `json:"bucket"`
	ScanKind      ScanKind `json:"scan_kind,omitempty"`
	ObservationID string   `json:"observation_id,omitempty"` // Gap observation driving a memo
	MemoID        string   `json:"memo_id,omitempty"`
}
