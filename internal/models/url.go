package models

import "time"

// MonitoredURL is a registered endpoint that gets pinged on a schedule.
// Deleting a URL only flips Active to false; its check history is retained.
type MonitoredURL struct {
	ID              int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          int       `json:"user_id" gorm:"not null;index"`
	Target          string    `json:"url" gorm:"column:target;not null"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	IntervalMinutes int       `json:"interval_minutes" gorm:"default:5"`
	Active          bool      `json:"active" gorm:"default:true;index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relationships (optional, for eager loading)
	User   User          `json:"-" gorm:"foreignKey:UserID"`
	Checks []CheckRecord `json:"-" gorm:"foreignKey:URLID"`
}

// TableName specifies the table name for MonitoredURL
func (MonitoredURL) TableName() string {
	return "urls"
}
