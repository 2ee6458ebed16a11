package importer

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Transformer converts raw rows into canonical records using a resolved
// column mapping and the operator's manual tags. Rows are processed in
// fixed-size chunks with a cooperative yield between chunks; cancellation is
// observed only at chunk boundaries, never mid-chunk.
type Transformer struct {
	cfg Config
}

// NewTransformer creates a transformer with the given tuning config
func NewTransformer(cfg Config) *Transformer {
	return &Transformer{cfg: cfg.withDefaults()}
}

// Transform converts rows to records. Headers give the file's column order
// and make "last mapped header wins" deterministic for scalar collisions.
// Output preserves input row order among records that survive the
// mandatory-field filter; dropped rows are an intentional filtering policy,
// not errors.
func (t *Transformer) Transform(ctx context.Context, rows []RawRow, headers []string, mapping map[string]string, tags ManualTags, entity EntityType) ([]Record, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}

	records := make([]Record, 0, len(rows))

	for start := 0; start < len(rows); start += t.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("transform cancelled: %w", err)
		}

		end := start + t.cfg.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}

		for _, row := range rows[start:end] {
			if record, keep := transformRow(row, headers, mapping, tags, entity); keep {
				records = append(records, record)
			}
		}

		if end < len(rows) {
			// Yield point between chunks; keeps other goroutines serviced
			runtime.Gosched()
		}
	}

	return records, nil
}

// transformRow builds one canonical record, or reports false when the row
// fails the entity's mandatory-field filter
func transformRow(row RawRow, headers []string, mapping map[string]string, tags ManualTags, entity EntityType) (Record, bool) {
	// Seed with copies of the manual tag collections; records must not share
	// backing arrays
	record := Record{
		fieldTagsA: copyTokens(tags.TagsA),
		fieldTagsB: copyTokens(tags.TagsB),
		fieldTagsC: copyTokens(tags.TagsC),
	}

	if entity == EntityCompany {
		record[fieldKeywords] = []string{}
		record[fieldTechnologies] = []string{}
	}

	for _, header := range headers {
		key, mapped := mapping[header]
		if !mapped {
			continue
		}

		cell := row[header]
		value := strings.TrimSpace(cell)
		if value == "" {
			continue
		}

		switch {
		case isTagField(key):
			record[key] = append(record[key].([]string), splitList(cell)...)
		case isCompanyListField(key):
			if entity != EntityCompany {
				// Contact files may carry company-only columns; skip quietly
				continue
			}
			record[key] = append(record[key].([]string), splitList(cell)...)
		default:
			// Scalar; last mapped header wins in column order
			record[key] = value
		}
	}

	if entity == EntityContact {
		deriveContactNames(record)
	}

	return record, passesMandatoryFilter(record, entity)
}

// deriveContactNames splits a full name into first/last when neither was set
// directly: first token becomes the first name, the remainder the last name.
func deriveContactNames(record Record) {
	if scalar(record, fieldFirstName) != "" || scalar(record, fieldLastName) != "" {
		return
	}

	fullName := scalar(record, fieldFullName)
	if fullName == "" {
		return
	}

	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return
	}

	record[fieldFirstName] = parts[0]
	if len(parts) > 1 {
		record[fieldLastName] = strings.Join(parts[1:], " ")
	}
}

// passesMandatoryFilter applies the per-entity keep rule: companies need a
// name; contacts need first name, last name and email (email is the remote
// upsert's conflict key)
func passesMandatoryFilter(record Record, entity EntityType) bool {
	switch entity {
	case EntityCompany:
		return scalar(record, fieldName) != ""
	case EntityContact:
		return scalar(record, fieldFirstName) != "" &&
			scalar(record, fieldLastName) != "" &&
			scalar(record, fieldEmail) != ""
	default:
		return false
	}
}

// scalar reads a string field from a record, tolerating absence
func scalar(record Record, key string) string {
	if value, ok := record[key].(string); ok {
		return value
	}
	return ""
}

// splitList splits a multi-value cell on commas, trimming tokens and dropping
// empties, order preserved
func splitList(cell string) []string {
	parts := strings.Split(cell, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// copyTokens clones a tag collection so records never alias the operator's slices
func copyTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}
