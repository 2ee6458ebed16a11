package models

import (
	"time"
)

// ImportJob records one executed import run for the history view
type ImportJob struct {
	ID             string    `gorm:"primaryKey" json:"id"` // UUID session ID
	ProfileID      string    `gorm:"column:profile_id" json:"profile_id"`
	FileName       string    `gorm:"column:file_name" json:"file_name"`
	EntityType     string    `gorm:"not null;column:entity_type" json:"entity_type"` // company, contact
	Status         string    `gorm:"not null;default:running" json:"status"`         // running, completed, failed, cancelled
	TotalRecords   int       `gorm:"column:total_records" json:"total_records"`
	Created        int       `json:"created"`
	Updated        int       `json:"updated"`
	Duplicates     int       `json:"duplicates"`
	ErrorCount     int       `gorm:"column:error_count" json:"error_count"`
	PartialSuccess bool      `gorm:"column:partial_success" json:"partial_success"`
	Results        string    `gorm:"type:text" json:"results"` // JSON blob of the full ImportResult
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ImportJob) TableName() string {
	return "import_jobs"
}
