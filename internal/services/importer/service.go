package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"gorm.io/gorm"

	"leadsync-desktop/internal/api"
	"leadsync-desktop/internal/crypto"
	"leadsync-desktop/internal/models"
)

// Service owns import sessions and drives the parse -> transform -> upload
// pipeline for each one. Progress is pushed to the frontend over per-session
// events and every executed run is persisted as an ImportJob.
type Service struct {
	db     *gorm.DB
	ctx    context.Context
	cfg    Config
	parser *Parser

	sessions  map[string]*session
	sessionMu sync.RWMutex
}

// session is the in-memory state of one import flow
type session struct {
	id        string
	profileID string
	workflow  *Workflow
	fileText  string
	cancel    context.CancelFunc
}

// SessionState is the frontend-facing snapshot of a session
type SessionState struct {
	SessionID  string            `json:"session_id"`
	ProfileID  string            `json:"profile_id"`
	EntityType EntityType        `json:"entity_type"`
	Step       Step              `json:"step"`
	Executing  bool              `json:"executing"`
	FileName   string            `json:"file_name,omitempty"`
	Headers    []string          `json:"headers,omitempty"`
	Preview    []RawRow          `json:"preview,omitempty"`
	Mapping    map[string]string `json:"mapping,omitempty"`
	Tags       ManualTags        `json:"tags"`
	Result     *ImportResult     `json:"result,omitempty"`
}

// NewService creates the import service
func NewService(db *gorm.DB, ctx context.Context, cfg Config) *Service {
	return &Service{
		db:       db,
		ctx:      ctx,
		cfg:      cfg.withDefaults(),
		parser:   NewParser(),
		sessions: make(map[string]*session),
	}
}

// StartSession opens a fresh import session against a saved connection profile
func (s *Service) StartSession(profileID string, entity EntityType) (*SessionState, error) {
	if _, err := s.getProfile(profileID); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	workflow, err := NewWorkflow(entity)
	if err != nil {
		return nil, err
	}

	sess := &session{
		id:        uuid.New().String(),
		profileID: profileID,
		workflow:  workflow,
	}

	s.sessionMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionMu.Unlock()

	return s.snapshot(sess), nil
}

// GetSession returns the current state of a session
func (s *Service) GetSession(sessionID string) (*SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// LoadFile parses a preview of the uploaded CSV and advances the session to
// the mapping step with an auto-resolved column mapping
func (s *Service) LoadFile(sessionID, fileName, fileText string) (*SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	preview, err := s.parser.ParsePreview(fileText, s.cfg.PreviewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if err := sess.workflow.LoadPreview(fileName, preview); err != nil {
		return nil, err
	}
	sess.fileText = fileText

	return s.snapshot(sess), nil
}

// UpdateMapping applies the operator's column mapping edits
func (s *Service) UpdateMapping(sessionID string, mapping map[string]string) (*SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if err := sess.workflow.UpdateMapping(mapping); err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// ConfirmMapping advances to the tags step once all required fields are mapped
func (s *Service) ConfirmMapping(sessionID string) (*SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if err := sess.workflow.ConfirmMapping(); err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// SetManualTags stores the run-wide tag collections
func (s *Service) SetManualTags(sessionID string, tags ManualTags) (*SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if err := sess.workflow.SetTags(tags); err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// Execute kicks off the full pipeline for a session in a background goroutine.
// Progress and the terminal outcome are emitted on the "import:<sessionID>"
// event channel.
func (s *Service) Execute(sessionID string) error {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	profile, err := s.getProfile(sess.profileID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	client, err := s.getAPIClient(profile)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	s.sessionMu.Lock()
	if err := sess.workflow.BeginExecution(); err != nil {
		s.sessionMu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	fileText := sess.fileText
	headers := sess.workflow.Headers()
	mapping := sess.workflow.Mapping()
	tags := sess.workflow.Tags()
	entity := sess.workflow.Entity()
	fileName := sess.workflow.FileName()
	s.sessionMu.Unlock()

	go s.performImport(runCtx, sess, client, fileText, fileName, headers, mapping, tags, entity)

	return nil
}

// Cancel requests cancellation of a session's running import. The run stops at
// the next batch boundary; in-flight batches are never abandoned mid-request.
func (s *Service) Cancel(sessionID string) error {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if !sess.workflow.Executing() || sess.cancel == nil {
		return fmt.Errorf("no import is running for session %s", sessionID)
	}
	sess.cancel()
	return nil
}

// Reset returns a session to the upload step, cancelling any running import
func (s *Service) Reset(sessionID string) (*SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.workflow.Reset()
	sess.fileText = ""

	return s.snapshot(sess), nil
}

// CloseSession discards a session entirely
func (s *Service) CloseSession(sessionID string) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if sess, exists := s.sessions[sessionID]; exists {
		if sess.cancel != nil {
			sess.cancel()
		}
		delete(s.sessions, sessionID)
	}
}

// ListImportJobs returns run history, newest first
func (s *Service) ListImportJobs(limit int) ([]models.ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []models.ImportJob
	if err := s.db.Order("created_at desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	return jobs, nil
}

// RunHeadless executes a complete import without an interactive session, used
// by scheduled jobs. The mapping is resolved automatically from the file's
// headers; rows under unresolvable columns are ignored.
func (s *Service) RunHeadless(ctx context.Context, profileID string, entity EntityType, fileName, fileText string, tags ManualTags) (*ImportResult, error) {
	profile, err := s.getProfile(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	client, err := s.getAPIClient(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	rows, err := s.parser.ParseAll(fileText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	preview, err := s.parser.ParsePreview(fileText, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}
	mapping := ResolveHeaders(preview.Headers, FieldCatalog(entity))

	records, err := NewTransformer(s.cfg).Transform(ctx, rows, preview.Headers, mapping, tags, entity)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	s.recordJobStart(jobID, profileID, fileName, entity, len(records))

	result, err := NewUploader(apiBulkUpserter{client: client}, s.cfg).Upload(ctx, entity, records, nil)
	if err != nil {
		s.recordJobEnd(jobID, statusForError(ctx), nil)
		return nil, err
	}

	s.recordJobEnd(jobID, "completed", result)
	return result, nil
}

// performImport is the background body of Execute
func (s *Service) performImport(ctx context.Context, sess *session, client *api.Client, fileText, fileName string, headers []string, mapping map[string]string, tags ManualTags, entity EntityType) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Import %s panicked: %v", sess.id, r)
			s.finishWithError(sess, fmt.Errorf("internal error: %v", r))
		}
	}()

	s.emitProgress(sess.id, "parsing", 0, 0, "Parsing file...")

	rows, err := s.parser.ParseAll(fileText)
	if err != nil {
		s.finishWithError(sess, fmt.Errorf("failed to parse file: %w", err))
		return
	}

	s.emitProgress(sess.id, "transforming", 0, len(rows), fmt.Sprintf("Transforming %d rows...", len(rows)))

	records, err := NewTransformer(s.cfg).Transform(ctx, rows, headers, mapping, tags, entity)
	if err != nil {
		s.finishWithError(sess, err)
		return
	}

	s.recordJobStart(sess.id, sess.profileID, fileName, entity, len(records))
	s.emitProgress(sess.id, "uploading", 0, len(records), fmt.Sprintf("Uploading %d records...", len(records)))

	uploader := NewUploader(apiBulkUpserter{client: client}, s.cfg)
	result, err := uploader.Upload(ctx, entity, records, func(processed, total int) {
		s.emitProgress(sess.id, "uploading", processed, total, fmt.Sprintf("Uploaded %d of %d records", processed, total))
	})
	if err != nil {
		s.recordJobEnd(sess.id, statusForError(ctx), nil)
		s.finishWithError(sess, err)
		return
	}

	s.recordJobEnd(sess.id, "completed", result)

	s.sessionMu.Lock()
	completeErr := sess.workflow.CompleteExecution(result)
	sess.cancel = nil
	s.sessionMu.Unlock()
	if completeErr != nil {
		log.Printf("Import %s finished in an unexpected state: %v", sess.id, completeErr)
	}

	s.emitResult(sess.id, result)
}

// finishWithError returns the workflow to the tags step and reports the outcome
func (s *Service) finishWithError(sess *session, err error) {
	s.sessionMu.Lock()
	sess.workflow.FailExecution()
	sess.cancel = nil
	s.sessionMu.Unlock()

	if errors.Is(err, context.Canceled) {
		log.Printf("Import %s cancelled", sess.id)
	} else {
		log.Printf("Import %s failed: %v", sess.id, err)
	}
	s.emit(sess.id, failureEvent(sess.id, err))
}

// failureEvent builds the terminal event for a run that produced no result.
// Cancellation is a clean termination, not an error: it carries a distinct
// status and no message, so the frontend shows no error dialog for it.
func failureEvent(sessionID string, err error) map[string]interface{} {
	if errors.Is(err, context.Canceled) {
		return map[string]interface{}{
			"session_id": sessionID,
			"status":     "cancelled",
		}
	}
	return map[string]interface{}{
		"session_id": sessionID,
		"status":     "error",
		"message":    err.Error(),
	}
}

func (s *Service) emitProgress(sessionID, status string, processed, total int, message string) {
	s.emit(sessionID, map[string]interface{}{
		"session_id": sessionID,
		"status":     status,
		"processed":  processed,
		"total":      total,
		"message":    message,
	})
}

func (s *Service) emitResult(sessionID string, result *ImportResult) {
	status := "completed"
	if result.PartialSuccess {
		status = "partial"
	}
	s.emit(sessionID, map[string]interface{}{
		"session_id": sessionID,
		"status":     status,
		"results":    result,
	})
}

func (s *Service) emit(sessionID string, payload map[string]interface{}) {
	if s.ctx == nil {
		return // headless runs have no frontend attached
	}
	runtime.EventsEmit(s.ctx, fmt.Sprintf("import:%s", sessionID), payload)
}

// recordJobStart persists the run in the history table before the upload begins
func (s *Service) recordJobStart(jobID, profileID, fileName string, entity EntityType, totalRecords int) {
	job := models.ImportJob{
		ID:           jobID,
		ProfileID:    profileID,
		FileName:     fileName,
		EntityType:   string(entity),
		Status:       "running",
		TotalRecords: totalRecords,
	}
	if err := s.db.Create(&job).Error; err != nil {
		log.Printf("Failed to record import job %s: %v", jobID, err)
	}
}

// recordJobEnd updates the history row with the terminal status and counts
func (s *Service) recordJobEnd(jobID, status string, result *ImportResult) {
	updates := map[string]interface{}{"status": status}

	if result != nil {
		updates["created"] = result.Created
		updates["updated"] = result.Updated
		updates["duplicates"] = result.Duplicates
		updates["error_count"] = len(result.Errors)
		updates["partial_success"] = result.PartialSuccess

		if blob, err := json.Marshal(result); err == nil {
			updates["results"] = string(blob)
		}
	}

	if err := s.db.Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		log.Printf("Failed to update import job %s: %v", jobID, err)
	}
}

func (s *Service) getSession(sessionID string) (*session, error) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return sess, nil
}

// snapshot builds the frontend view of a session; callers hold sessionMu or
// have exclusive access
func (s *Service) snapshot(sess *session) *SessionState {
	return &SessionState{
		SessionID:  sess.id,
		ProfileID:  sess.profileID,
		EntityType: sess.workflow.Entity(),
		Step:       sess.workflow.Step(),
		Executing:  sess.workflow.Executing(),
		FileName:   sess.workflow.FileName(),
		Headers:    sess.workflow.Headers(),
		Preview:    sess.workflow.PreviewRows(),
		Mapping:    sess.workflow.Mapping(),
		Tags:       sess.workflow.Tags(),
		Result:     sess.workflow.Result(),
	}
}

func (s *Service) getProfile(profileID string) (*models.ConnectionProfile, error) {
	var profile models.ConnectionProfile
	if err := s.db.First(&profile, "id = ?", profileID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Service) getAPIClient(profile *models.ConnectionProfile) (*api.Client, error) {
	apiKey, err := crypto.DecryptAPIKey(profile.APIKeyEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt API key: %w", err)
	}
	return api.NewClient(profile.BaseURL, apiKey), nil
}

// statusForError picks the history status for a failed run
func statusForError(ctx context.Context) string {
	if ctx.Err() != nil {
		return "cancelled"
	}
	return "failed"
}

// apiBulkUpserter adapts the REST client to the uploader's narrow interface
type apiBulkUpserter struct {
	client *api.Client
}

func (a apiBulkUpserter) BulkUpsert(ctx context.Context, entity EntityType, records []Record) (*BulkResponse, error) {
	resp, err := a.client.BulkUpsert(ctx, string(entity), records)
	if err != nil {
		return nil, err
	}

	out := &BulkResponse{
		Total:      resp.Total,
		Created:    resp.Created,
		Updated:    resp.Updated,
		Duplicates: resp.Duplicates,
	}
	for _, e := range resp.Errors {
		out.Errors = append(out.Errors, RecordError{Index: e.Index, Error: e.Error})
	}
	return out, nil
}
