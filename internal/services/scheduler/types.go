package scheduler

import "time"

// JobListResponse represents a scheduled job in list responses
type JobListResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	JobType   string  `json:"job_type"`
	Cron      string  `json:"cron"`
	Timezone  string  `json:"timezone"`
	Enabled   bool    `json:"enabled"`
	LastRunAt *string `json:"last_run_at"` // ISO 8601 format
	NextRun   *string `json:"next_run"`    // ISO 8601 format
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// UpsertJobRequest represents a request to create or update a scheduled job
type UpsertJobRequest struct {
	Name     string      `json:"name"`
	JobType  string      `json:"job_type"` // "import"
	Cron     string      `json:"cron"`
	Timezone string      `json:"timezone"`
	Enabled  bool        `json:"enabled"`
	Payload  interface{} `json:"payload"` // Can be map or string
}

// ImportJobPayload represents the payload for a scheduled import job
type ImportJobPayload struct {
	ProfileID  string   `json:"profile_id"`
	Path       string   `json:"path"`        // CSV file to import, read at run time
	EntityType string   `json:"entity_type"` // "company" or "contact"
	TagsA      []string `json:"tags_a"`
	TagsB      []string `json:"tags_b"`
	TagsC      []string `json:"tags_c"`
}

// importRunTimeout bounds one unattended import run
const importRunTimeout = 30 * time.Minute
