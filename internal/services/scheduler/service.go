package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"leadsync-desktop/internal/models"
	"leadsync-desktop/internal/services/importer"
)

// ImportRunner defines the interface for import service integration
type ImportRunner interface {
	RunHeadless(ctx context.Context, profileID string, entity importer.EntityType, fileName, fileText string, tags importer.ManualTags) (*importer.ImportResult, error)
}

// Service handles scheduled job management and execution
type Service struct {
	db     *gorm.DB
	ctx    context.Context
	cron   *cron.Cron
	jobs   map[string]cron.EntryID // jobID -> cron entry ID
	jobsMu sync.RWMutex
	runner ImportRunner
}

// NewService creates a new scheduler service
func NewService(db *gorm.DB, ctx context.Context, runner ImportRunner) *Service {
	// Create cron scheduler with seconds support
	c := cron.New(cron.WithSeconds())

	return &Service{
		db:     db,
		ctx:    ctx,
		cron:   c,
		jobs:   make(map[string]cron.EntryID),
		runner: runner,
	}
}

// Start initializes the scheduler and loads enabled jobs from database
func (s *Service) Start() error {
	log.Println("Starting scheduler...")

	// Start the cron scheduler
	s.cron.Start()
	log.Println("Cron scheduler started")

	// Load all enabled jobs from database
	var jobs []models.ScheduledJob
	if err := s.db.Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.scheduleJob(&job); err != nil {
			log.Printf("WARNING: Failed to schedule job %s (%s): %v", job.Name, job.ID, err)
		} else {
			log.Printf("Scheduled job: %s (%s) with cron: %s", job.Name, job.ID, job.Cron)
		}
	}

	log.Printf("Scheduler started with %d enabled jobs", len(jobs))
	return nil
}

// Stop gracefully stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		log.Println("Scheduler stopped")
	}
}

// ListJobs retrieves all scheduled jobs
func (s *Service) ListJobs() ([]JobListResponse, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	responses := make([]JobListResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.toJobListResponse(&job)
	}

	return responses, nil
}

// UpsertJob creates or updates a scheduled job
func (s *Service) UpsertJob(req UpsertJobRequest) (string, error) {
	// Validate required fields
	if req.Name == "" || req.JobType == "" || req.Cron == "" {
		return "", fmt.Errorf("name, job_type, and cron are required")
	}
	if req.JobType != "import" {
		return "", fmt.Errorf("unknown job type: %s", req.JobType)
	}

	// Normalize and validate cron expression (convert 5-field to 6-field)
	normalizedCron, err := normalizeCron(req.Cron)
	if err != nil {
		return "", err
	}
	req.Cron = normalizedCron

	// Find or create job
	var job models.ScheduledJob
	result := s.db.Where("name = ?", req.Name).First(&job)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			// Create new job
			job = models.ScheduledJob{
				ID:   uuid.New().String(),
				Name: req.Name,
			}
		} else {
			return "", fmt.Errorf("failed to query job: %w", result.Error)
		}
	}

	// Update job fields
	job.JobType = req.JobType
	job.Cron = req.Cron
	job.Timezone = req.Timezone
	if job.Timezone == "" {
		job.Timezone = "UTC"
	}
	job.Enabled = req.Enabled

	// Handle payload
	payloadStr := ""
	if req.Payload != nil {
		switch p := req.Payload.(type) {
		case string:
			payloadStr = p
		default:
			data, err := json.Marshal(p)
			if err != nil {
				return "", fmt.Errorf("failed to marshal payload: %w", err)
			}
			payloadStr = string(data)
		}
	}
	if err := validateImportPayload(payloadStr); err != nil {
		return "", err
	}
	job.Payload = payloadStr

	// Calculate next run time (cron parser uses the 6-field format stored in DB)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(job.Cron)
	if err != nil {
		return "", fmt.Errorf("failed to parse cron for next run: %w", err)
	}
	nextRun := schedule.Next(time.Now())
	job.NextRunAt = &nextRun

	// Save to database
	if result.Error == gorm.ErrRecordNotFound {
		if err := s.db.Create(&job).Error; err != nil {
			return "", fmt.Errorf("failed to create job: %w", err)
		}
	} else {
		if err := s.db.Save(&job).Error; err != nil {
			return "", fmt.Errorf("failed to update job: %w", err)
		}
	}

	// Reschedule in cron
	if err := s.rescheduleJob(job.ID); err != nil {
		return "", fmt.Errorf("failed to reschedule job: %w", err)
	}

	return job.ID, nil
}

// DeleteJob removes a scheduled job
func (s *Service) DeleteJob(jobID string) error {
	// Remove from cron if exists
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, jobID)
	}
	s.jobsMu.Unlock()

	// Delete from database
	if err := s.db.Delete(&models.ScheduledJob{}, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return nil
}

// RunJobNow triggers a job immediately, outside its schedule
func (s *Service) RunJobNow(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	go s.executeJob(job.ID)
	return nil
}

// scheduleJob adds a job to the cron scheduler
func (s *Service) scheduleJob(job *models.ScheduledJob) error {
	if !job.Enabled {
		return nil
	}

	// Remove existing entry if present
	s.jobsMu.Lock()
	if entryID, exists := s.jobs[job.ID]; exists {
		s.cron.Remove(entryID)
	}
	s.jobsMu.Unlock()

	// Add job to cron
	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Cron, func() {
		s.executeJob(jobID)
	})

	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = entryID
	s.jobsMu.Unlock()

	return nil
}

// rescheduleJob reloads a job from database and reschedules it
func (s *Service) rescheduleJob(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Job was deleted, remove from cron
			s.jobsMu.Lock()
			if entryID, exists := s.jobs[jobID]; exists {
				s.cron.Remove(entryID)
				delete(s.jobs, jobID)
			}
			s.jobsMu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}

	return s.scheduleJob(&job)
}

// executeJob runs a scheduled job
func (s *Service) executeJob(jobID string) {
	log.Printf("Executing scheduled job: %s", jobID)

	// Load job from database
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		log.Printf("ERROR: Failed to load job %s: %v", jobID, err)
		return
	}

	// Update last run time
	now := time.Now()
	job.LastRunAt = &now

	// Calculate next run time (cron parser uses the 6-field format stored in DB)
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(job.Cron)
	if err != nil {
		log.Printf("WARNING: Failed to parse cron for next run: %v", err)
	} else {
		nextRun := schedule.Next(now)
		job.NextRunAt = &nextRun
	}

	if err := s.db.Save(&job).Error; err != nil {
		log.Printf("WARNING: Failed to update job run times: %v", err)
	}

	// Execute based on job type
	switch job.JobType {
	case "import":
		s.runImportJob(&job)
	default:
		log.Printf("WARNING: Unknown job type: %s", job.JobType)
	}

	log.Printf("Completed scheduled job: %s", jobID)
}

// runImportJob executes one unattended CSV import
func (s *Service) runImportJob(job *models.ScheduledJob) {
	var payload ImportJobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		log.Printf("ERROR: Failed to parse job payload for %s: %v", job.Name, err)
		return
	}

	entity := importer.EntityType(payload.EntityType)
	if payload.ProfileID == "" || payload.Path == "" || !entity.Valid() {
		log.Printf("WARNING: Incomplete import job payload for %s", job.Name)
		return
	}

	fileBytes, err := os.ReadFile(payload.Path)
	if err != nil {
		log.Printf("ERROR: Failed to read import file %s: %v", payload.Path, err)
		return
	}

	tags := importer.ManualTags{
		TagsA: payload.TagsA,
		TagsB: payload.TagsB,
		TagsC: payload.TagsC,
	}

	log.Printf("Starting scheduled import of %s (profile: %s, entity: %s)", payload.Path, payload.ProfileID, entity)

	ctx, cancel := context.WithTimeout(context.Background(), importRunTimeout)
	defer cancel()

	fileName := filepath.Base(payload.Path)
	result, err := s.runner.RunHeadless(ctx, payload.ProfileID, entity, fileName, string(fileBytes), tags)
	if err != nil {
		log.Printf("ERROR: Scheduled import %s failed: %v", job.Name, err)
		return
	}

	log.Printf("Scheduled import %s completed: %d created, %d updated, %d duplicates, %d errors",
		job.Name, result.Created, result.Updated, result.Duplicates, len(result.Errors))
}

// validateImportPayload rejects payloads the import runner could never execute
func validateImportPayload(payloadStr string) error {
	if payloadStr == "" {
		return fmt.Errorf("import jobs require a payload")
	}

	var payload ImportJobPayload
	if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if payload.ProfileID == "" {
		return fmt.Errorf("payload requires profile_id")
	}
	if payload.Path == "" {
		return fmt.Errorf("payload requires path")
	}
	if !importer.EntityType(payload.EntityType).Valid() {
		return fmt.Errorf("payload requires entity_type of company or contact")
	}

	return nil
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	// Trim whitespace
	cronExpr = strings.TrimSpace(cronExpr)

	// Check if it's already 6-field
	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		// Already 6-field, try to validate it
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cronExpr); err == nil {
			return cronExpr, nil // Valid 6-field expression
		}
	}

	// Assume 5-field, validate and convert
	if len(fields) == 5 {
		// Validate as standard 5-field cron
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// Prepend seconds (0 = run at 0 seconds of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}

func (s *Service) toJobListResponse(job *models.ScheduledJob) JobListResponse {
	resp := JobListResponse{
		ID:        job.ID,
		Name:      job.Name,
		JobType:   job.JobType,
		Cron:      job.Cron,
		Timezone:  job.Timezone,
		Enabled:   job.Enabled,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		lastRun := job.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &lastRun
	}

	if job.NextRunAt != nil {
		nextRun := job.NextRunAt.Format(time.RFC3339)
		resp.NextRun = &nextRun
	}

	return resp
}
