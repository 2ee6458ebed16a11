package importer

import (
	"fmt"
	"strings"
)

// Step identifies where an import session sits in the user-facing flow
type Step string

const (
	StepUpload  Step = "upload"
	StepMapping Step = "mapping"
	StepTags    Step = "tags"
	StepResults Step = "results"
)

// Workflow sequences one import session through
// upload -> mapping -> tags -> results. Execution is a sub-state of tags, not
// a navigable step. Transitions validate their payloads so a session can
// never, for example, sit in results without a result.
type Workflow struct {
	entity EntityType

	step      Step
	executing bool

	fileName string
	headers  []string
	preview  []RawRow
	mapping  map[string]string
	tags     ManualTags
	result   *ImportResult
}

// NewWorkflow starts a session at the upload step
func NewWorkflow(entity EntityType) (*Workflow, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}
	return &Workflow{entity: entity, step: StepUpload}, nil
}

// Entity returns the session's destination entity type
func (w *Workflow) Entity() EntityType { return w.entity }

// Step returns the current step
func (w *Workflow) Step() Step { return w.step }

// Executing reports whether an upload run is in flight (tags sub-state)
func (w *Workflow) Executing() bool { return w.executing }

// FileName returns the name of the loaded file
func (w *Workflow) FileName() string { return w.fileName }

// Headers returns the parsed header row
func (w *Workflow) Headers() []string { return w.headers }

// PreviewRows returns the sample rows shown on the mapping step
func (w *Workflow) PreviewRows() []RawRow { return w.preview }

// Mapping returns the current header -> field assignment
func (w *Workflow) Mapping() map[string]string { return w.mapping }

// Tags returns the operator's manual tag collections
func (w *Workflow) Tags() ManualTags { return w.tags }

// Result returns the aggregated outcome, only available on the results step
func (w *Workflow) Result() *ImportResult {
	if w.step != StepResults {
		return nil
	}
	return w.result
}

// LoadPreview moves upload -> mapping after a successful parse preview and
// pre-populates the column mapping via the resolver
func (w *Workflow) LoadPreview(fileName string, preview *Preview) error {
	if w.step != StepUpload {
		return fmt.Errorf("cannot load a file from the %s step", w.step)
	}
	if preview == nil || len(preview.Headers) == 0 {
		return fmt.Errorf("preview has no headers")
	}

	w.fileName = fileName
	w.headers = preview.Headers
	w.preview = preview.Rows
	w.mapping = ResolveHeaders(preview.Headers, FieldCatalog(w.entity))
	w.step = StepMapping
	return nil
}

// UpdateMapping replaces the column mapping with the operator's adjustments.
// Every key must be one of the file's headers; every value a known field key.
func (w *Workflow) UpdateMapping(mapping map[string]string) error {
	if w.step != StepMapping {
		return fmt.Errorf("cannot edit the mapping from the %s step", w.step)
	}

	headerSet := make(map[string]bool, len(w.headers))
	for _, h := range w.headers {
		headerSet[h] = true
	}
	knownKeys := catalogKeys(FieldCatalog(w.entity))

	cleaned := make(map[string]string, len(mapping))
	for header, key := range mapping {
		if !headerSet[header] {
			return fmt.Errorf("unknown column: %q", header)
		}
		if key == "" {
			continue // explicit "ignore this column"
		}
		if !knownKeys[key] {
			return fmt.Errorf("unknown field key: %q", key)
		}
		cleaned[header] = key
	}

	w.mapping = cleaned
	return nil
}

// ConfirmMapping moves mapping -> tags, blocked while any required field in
// the catalog has no header mapped to it
func (w *Workflow) ConfirmMapping() error {
	if w.step != StepMapping {
		return fmt.Errorf("cannot confirm the mapping from the %s step", w.step)
	}

	if missing := w.missingRequiredFields(); len(missing) > 0 {
		return fmt.Errorf("required field(s) not mapped: %s", strings.Join(missing, ", "))
	}

	w.step = StepTags
	return nil
}

// missingRequiredFields lists labels of required fields no header maps to
func (w *Workflow) missingRequiredFields() []string {
	mapped := make(map[string]bool, len(w.mapping))
	for _, key := range w.mapping {
		mapped[key] = true
	}

	var missing []string
	for _, field := range FieldCatalog(w.entity) {
		if field.Required && !mapped[field.Key] {
			missing = append(missing, field.Label)
		}
	}
	return missing
}

// SetTags stores the operator's manual tag collections
func (w *Workflow) SetTags(tags ManualTags) error {
	if w.step != StepTags {
		return fmt.Errorf("cannot set tags from the %s step", w.step)
	}
	if w.executing {
		return fmt.Errorf("cannot change tags while an import is running")
	}
	w.tags = tags
	return nil
}

// BeginExecution enters the executing sub-state of tags
func (w *Workflow) BeginExecution() error {
	if w.step != StepTags {
		return fmt.Errorf("cannot start the import from the %s step", w.step)
	}
	if w.executing {
		return fmt.Errorf("an import is already running")
	}
	w.executing = true
	return nil
}

// CompleteExecution moves tags -> results carrying the aggregated outcome
func (w *Workflow) CompleteExecution(result *ImportResult) error {
	if w.step != StepTags || !w.executing {
		return fmt.Errorf("no import is running")
	}
	if result == nil {
		return fmt.Errorf("import completed without a result")
	}
	w.executing = false
	w.result = result
	w.step = StepResults
	return nil
}

// FailExecution leaves the session on the tags step after a fatal upload
// failure or a cancellation, ready for another attempt
func (w *Workflow) FailExecution() {
	w.executing = false
}

// Reset returns the session to the upload step from any state, discarding all
// transient data. The caller is responsible for cancelling an in-flight run.
func (w *Workflow) Reset() {
	w.step = StepUpload
	w.executing = false
	w.fileName = ""
	w.headers = nil
	w.preview = nil
	w.mapping = nil
	w.tags = ManualTags{}
	w.result = nil
}
