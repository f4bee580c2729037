// Package models defines run records persisted by the surrounding SDK.
package models

import "time"

// RunRecord captures one onboarding run for persistence and analytics.
type RunRecord struct {
	SessionID  string     `json:"session_id"`
	Launch     string     `json:"launch"`
	LastScreen string     `json:"last_screen,omitempty"`
	Completed  bool       `json:"completed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
