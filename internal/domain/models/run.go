package models

import (
	"time"

	"github.com/google/uuid"
)

// ScreeningRun is one persisted screening execution.
type ScreeningRun struct {
	ID          uuid.UUID         `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	Symbols     []string          `json:"symbols"`
	Sources     []string          `json:"sources"`
	Ranked      bool              `json:"ranked"`
	Results     []ScreeningResult `json:"results,omitempty"`
}

// RunSummary is the listing view of a ScreeningRun.
type RunSummary struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Symbols     []string  `json:"symbols"`
	Ranked      bool      `json:"ranked"`
	ResultCount int       `json:"result_count"`
}
