package importer

import "time"

// EntityType identifies the destination table of an import
type EntityType string

const (
	EntityCompany EntityType = "company"
	EntityContact EntityType = "contact"
)

// Valid reports whether the entity type is one the pipeline knows about
func (e EntityType) Valid() bool {
	return e == EntityCompany || e == EntityContact
}

// FieldDefinition describes one canonical destination field for an entity type
type FieldDefinition struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Required bool     `json:"required,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
}

// RawRow maps an original CSV header to the cell value on one data line
type RawRow map[string]string

// Record is a transformed row in the destination entity's field vocabulary.
// Multi-value fields hold []string, scalar fields hold string.
type Record map[string]any

// ManualTags are the operator-supplied labels merged into every record of one run
type ManualTags struct {
	TagsA []string `json:"tags_a"`
	TagsB []string `json:"tags_b"`
	TagsC []string `json:"tags_c"`
}

// RecordError is a per-record rejection reported by the server.
// Inside a BulkResponse the index is batch-relative; in an ImportResult it has
// been rebased to the record's position in the full upload.
type RecordError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkResponse is the server's outcome report for one submitted batch
type BulkResponse struct {
	Total      int           `json:"total"`
	Created    int           `json:"created"`
	Updated    int           `json:"updated"`
	Duplicates int           `json:"duplicates"`
	Errors     []RecordError `json:"errors"`
}

// ImportResult accumulates the outcome of all attempted batches of one upload
type ImportResult struct {
	Total            int           `json:"total"`
	Created          int           `json:"created"`
	Updated          int           `json:"updated"`
	Duplicates       int           `json:"duplicates"`
	Errors           []RecordError `json:"errors"`
	BatchesAttempted int           `json:"batches_attempted"`
	BatchesCompleted int           `json:"batches_completed"`
	PartialSuccess   bool          `json:"partial_success"`
}

// Preview is the small head-of-file sample used by the mapping UI
type Preview struct {
	Headers []string `json:"headers"`
	Rows    []RawRow `json:"rows"`
}

// ProgressFunc receives cumulative progress, once per completed batch
type ProgressFunc func(processed, total int)

// Config carries the pipeline tuning knobs. Zero values fall back to the
// documented defaults so tests can override only what they exercise.
type Config struct {
	BatchSize         int           // records per bulk request
	ChunkSize         int           // rows per transform chunk
	MaxAttempts       int           // attempts per batch before giving up
	RetryBaseDelay    time.Duration // backoff unit; attempt n waits (n-1) * base
	InterBatchDelay   time.Duration // pause between batches, an intentional rate limit
	BatchTimeout      time.Duration // network budget per batch
	FinalBatchTimeout time.Duration // budget for the last batch; trailing server work can run long
	PreviewRows       int           // data rows returned by ParsePreview
}

// DefaultConfig returns the production tuning values
func DefaultConfig() Config {
	return Config{
		BatchSize:         250,
		ChunkSize:         500,
		MaxAttempts:       3,
		RetryBaseDelay:    time.Second,
		InterBatchDelay:   150 * time.Millisecond,
		BatchTimeout:      30 * time.Second,
		FinalBatchTimeout: 60 * time.Second,
		PreviewRows:       20,
	}
}

// withDefaults fills any unset knob from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = def.RetryBaseDelay
	}
	if c.InterBatchDelay < 0 {
		c.InterBatchDelay = def.InterBatchDelay
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = def.BatchTimeout
	}
	if c.FinalBatchTimeout <= 0 {
		c.FinalBatchTimeout = def.FinalBatchTimeout
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = def.PreviewRows
	}
	return c
}
