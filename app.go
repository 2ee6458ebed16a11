package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"leadsync-desktop/internal/api"
	"leadsync-desktop/internal/crypto"
	"leadsync-desktop/internal/database"
	"leadsync-desktop/internal/models"
	"leadsync-desktop/internal/services/importer"
	"leadsync-desktop/internal/services/scheduler"
)

// App struct - main application state
type App struct {
	ctx              context.Context
	db               *gorm.DB
	selectedProfile  *models.ConnectionProfile
	importService    *importer.Service
	schedulerService *scheduler.Service
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	log.Println("Application starting up...")

	// Initialize encryption (FATAL if this fails - we cannot save profiles without it)
	if err := crypto.InitEncryption(); err != nil {
		log.Fatalf("FATAL: Encryption initialization failed: %v\nProfiles cannot be saved without encryption.", err)
	}
	log.Println("Encryption initialized successfully")

	// Initialize database
	db, err := database.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db
	log.Println("Database initialized successfully")

	// Initialize services
	a.importService = importer.NewService(db, ctx, importer.DefaultConfig())
	log.Println("Import service initialized")

	a.schedulerService = scheduler.NewService(db, ctx, a.importService)
	if err := a.schedulerService.Start(); err != nil {
		log.Printf("WARNING: Failed to start scheduler: %v", err)
	} else {
		log.Println("Scheduler service initialized and started")
	}

	log.Println("Startup complete")
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	log.Println("Application shutting down...")

	// Stop scheduler
	if a.schedulerService != nil {
		a.schedulerService.Stop()
	}

	// Close database
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}

// ====================================================================================
// WAILS-BOUND METHODS - Exposed to Frontend
// ====================================================================================

// Profile Management Methods

// ListProfiles returns all connection profiles
func (a *App) ListProfiles() ([]models.ConnectionProfile, error) {
	var profiles []models.ConnectionProfile
	if err := a.db.Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfile retrieves a specific connection profile by ID
func (a *App) GetProfile(profileID string) (*models.ConnectionProfile, error) {
	var profile models.ConnectionProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile creates a new connection profile
// NOTE: Frontend should call TestConnection() before calling this method
// to validate the URL and API key before saving to database
func (a *App) CreateProfile(req CreateProfileRequest) error {
	// Validate encryption is initialized
	if !crypto.IsInitialized() {
		return errors.New("encryption system not initialized - cannot save profiles")
	}

	apiKeyEnc, err := crypto.EncryptAPIKey(req.APIKey)
	if err != nil {
		return err
	}

	profile := &models.ConnectionProfile{
		Name:      req.Name,
		Owner:     req.Owner,
		BaseURL:   req.BaseURL,
		APIKeyEnc: apiKeyEnc,
	}

	return a.db.Create(profile).Error
}

// UpdateProfile updates an existing connection profile
func (a *App) UpdateProfile(profileID string, req CreateProfileRequest) error {
	var profile models.ConnectionProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return err
	}

	// Update fields
	profile.Name = req.Name
	profile.Owner = req.Owner
	profile.BaseURL = req.BaseURL

	// Encrypt the API key only if a new one was provided
	if req.APIKey != "" {
		apiKeyEnc, err := crypto.EncryptAPIKey(req.APIKey)
		if err != nil {
			return err
		}
		profile.APIKeyEnc = apiKeyEnc
	}

	return a.db.Save(&profile).Error
}

// DeleteProfile deletes a connection profile
func (a *App) DeleteProfile(profileID string) error {
	return a.db.Where("id = ?", profileID).Delete(&models.ConnectionProfile{}).Error
}

// SelectProfile sets the currently selected profile
func (a *App) SelectProfile(profileID string) error {
	var profile models.ConnectionProfile
	if err := a.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return err
	}
	a.selectedProfile = &profile
	log.Printf("Selected profile: %s", profile.Name)
	return nil
}

// GetSelectedProfile returns the currently selected profile
func (a *App) GetSelectedProfile() (*models.ConnectionProfile, error) {
	if a.selectedProfile == nil {
		return nil, nil
	}
	return a.selectedProfile, nil
}

// Import Service Methods

// GetFieldCatalog returns the canonical fields for an entity type, used by the
// mapping step to populate its dropdowns
func (a *App) GetFieldCatalog(entityType string) ([]importer.FieldDefinition, error) {
	entity := importer.EntityType(entityType)
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity type: %s", entityType)
	}
	return importer.FieldCatalog(entity), nil
}

// StartImportSession opens a new import session for a profile
func (a *App) StartImportSession(profileID string, entityType string) (*importer.SessionState, error) {
	return a.importService.StartSession(profileID, importer.EntityType(entityType))
}

// GetImportSession returns the current state of an import session
func (a *App) GetImportSession(sessionID string) (*importer.SessionState, error) {
	return a.importService.GetSession(sessionID)
}

// LoadImportFile hands the CSV text to a session and returns the preview
func (a *App) LoadImportFile(sessionID, fileName, fileText string) (*importer.SessionState, error) {
	return a.importService.LoadFile(sessionID, fileName, fileText)
}

// UpdateImportMapping applies the operator's column mapping edits
func (a *App) UpdateImportMapping(sessionID string, mapping map[string]string) (*importer.SessionState, error) {
	return a.importService.UpdateMapping(sessionID, mapping)
}

// ConfirmImportMapping advances a session from mapping to tags
func (a *App) ConfirmImportMapping(sessionID string) (*importer.SessionState, error) {
	return a.importService.ConfirmMapping(sessionID)
}

// SetImportTags stores the manual tag collections for a session
func (a *App) SetImportTags(sessionID string, tags importer.ManualTags) (*importer.SessionState, error) {
	return a.importService.SetManualTags(sessionID, tags)
}

// ExecuteImport starts the import run; progress arrives on "import:<sessionID>" events
func (a *App) ExecuteImport(sessionID string) error {
	return a.importService.Execute(sessionID)
}

// CancelImport requests cancellation of a running import
func (a *App) CancelImport(sessionID string) error {
	return a.importService.Cancel(sessionID)
}

// ResetImportSession returns a session to the upload step
func (a *App) ResetImportSession(sessionID string) (*importer.SessionState, error) {
	return a.importService.Reset(sessionID)
}

// CloseImportSession discards a session
func (a *App) CloseImportSession(sessionID string) {
	a.importService.CloseSession(sessionID)
}

// ListImportJobs retrieves recent import run history
func (a *App) ListImportJobs(limit int) ([]models.ImportJob, error) {
	return a.importService.ListImportJobs(limit)
}

// ====================================================================================
// SCHEDULER SERVICE OPERATIONS
// ====================================================================================

// ListScheduledJobs retrieves all scheduled jobs
func (a *App) ListScheduledJobs() ([]scheduler.JobListResponse, error) {
	return a.schedulerService.ListJobs()
}

// UpsertScheduledJob creates or updates a scheduled job
func (a *App) UpsertScheduledJob(req scheduler.UpsertJobRequest) (string, error) {
	return a.schedulerService.UpsertJob(req)
}

// DeleteScheduledJob removes a scheduled job
func (a *App) DeleteScheduledJob(jobID string) error {
	return a.schedulerService.DeleteJob(jobID)
}

// RunScheduledJobNow triggers a scheduled job immediately
func (a *App) RunScheduledJobNow(jobID string) error {
	return a.schedulerService.RunJobNow(jobID)
}

// ====================================================================================
// REQUEST/RESPONSE TYPES
// ====================================================================================

// CreateProfileRequest represents a request to create/update a connection profile
type CreateProfileRequest struct {
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"` // Plain text, will be encrypted
}

// TestConnectionRequest represents a connection test request
type TestConnectionRequest struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// TestConnectionResponse represents the test result
type TestConnectionResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// TestConnection tests a CRM connection without saving to database
func (a *App) TestConnection(req TestConnectionRequest) TestConnectionResponse {
	client := api.NewClient(req.BaseURL, req.APIKey)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := client.Me(ctx)
	if err != nil {
		return TestConnectionResponse{
			Success: false,
			Error:   fmt.Sprintf("Connection failed: %v", err),
		}
	}

	// Check HTTP status code
	if !resp.IsSuccess() {
		var errorMsg string
		switch resp.StatusCode() {
		case 401:
			errorMsg = "Invalid API key"
		case 404:
			errorMsg = "Server not found or invalid URL"
		case 403:
			errorMsg = "Access forbidden (check API key permissions)"
		default:
			errorMsg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.Status())
		}
		return TestConnectionResponse{
			Success: false,
			Error:   errorMsg,
		}
	}

	// Parse user info from response
	var userInfo struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}

	userName := "Connected User"
	if err := json.Unmarshal(resp.Body(), &userInfo); err == nil {
		if userInfo.FullName != "" {
			userName = userInfo.FullName
		} else if userInfo.Email != "" {
			userName = userInfo.Email
		}
	}

	return TestConnectionResponse{
		Success:  true,
		UserName: userName,
	}
}
