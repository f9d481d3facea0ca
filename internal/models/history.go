package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus represents the outcome of an enrichment run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported StringSlice source %T", value)
	}
}

// EnrichmentRun summarises one invocation of the enrichment pipeline
type EnrichmentRun struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	InputPath     string      `json:"input_path"`
	OutputPath    string      `json:"output_path"`
	Model         string      `gorm:"size:100" json:"model"`
	Workers       int         `json:"workers"`
	RawCount      int         `json:"raw_count"`
	EnrichedCount int         `json:"enriched_count"`
	SkippedCount  int         `json:"skipped_count"`
	TagsBefore    int         `json:"tags_before"`
	TagsAfter     int         `json:"tags_after"`
	CanonicalTags StringSlice `gorm:"type:json" json:"canonical_tags"`
	Status        RunStatus   `gorm:"size:20;index;default:'running'" json:"status"`
	ErrorMessage  string      `gorm:"type:text" json:"error_message"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    *time.Time  `json:"finished_at"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// Duration returns how long the run took, or zero while it is still running
func (r *EnrichmentRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// GeneratedPost records one post produced by the generator
type GeneratedPost struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Length       Length    `gorm:"size:10;index" json:"length"`
	Language     Language  `gorm:"size:20;index" json:"language"`
	Topic        string    `gorm:"size:255;index" json:"topic"`
	ExampleCount int       `json:"example_count"`
	Prompt       string    `gorm:"type:text" json:"prompt"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	Model        string    `gorm:"size:100" json:"model"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
