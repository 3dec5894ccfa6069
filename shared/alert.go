package shared

import "time"

const (
	// SeverityWarning is the severity assigned to rule-triggered alerts.
	SeverityWarning = "warning"
	// SeverityCritical is the severity assigned to operational failures.
	SeverityCritical = "critical"
)

// Alert represents a rule violation raised while processing a tick.
type Alert struct {
	Symbol    Symbol    `json:"symbol"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
}
