package models

import "time"

// CheckRecord is the immutable outcome of a single probe attempt.
// StatusCode is nil when the probe failed before receiving a response;
// ErrorMessage is set only in that case. ResponseTimeMs is recorded on
// every attempt, success or failure.
type CheckRecord struct {
	ID             int       `json:"id" gorm:"primaryKey;autoIncrement"`
	URLID          int       `json:"url_id" gorm:"not null;index:idx_url_checked"`
	StatusCode     *int      `json:"status_code,omitempty"`
	ResponseTimeMs int       `json:"response_time_ms"`
	Success        bool      `json:"success" gorm:"not null"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CheckedAt      time.Time `json:"checked_at" gorm:"not null;index:idx_url_checked"`
}

// TableName specifies the table name for CheckRecord
func (CheckRecord) TableName() string {
	return "url_checks"
}
