package importer

import "strings"

// ResolveHeaders proposes a header -> canonical field key mapping for a parsed
// file. Matching is case-insensitive and whitespace-trimmed, against each
// field's key, label and aliases in catalog order; the first matching field
// wins. Headers with no match are left out of the mapping so the operator can
// assign them manually. Pure function of its inputs.
func ResolveHeaders(headers []string, catalog []FieldDefinition) map[string]string {
	mapping := make(map[string]string, len(headers))

	for _, header := range headers {
		normalized := normalizeHeader(header)
		if normalized == "" {
			continue
		}

		for _, field := range catalog {
			if headerMatchesField(normalized, field) {
				mapping[header] = field.Key
				break
			}
		}
	}

	return mapping
}

// headerMatchesField checks one normalized header against a field's key,
// label and alias list
func headerMatchesField(normalized string, field FieldDefinition) bool {
	if normalized == normalizeHeader(field.Key) || normalized == normalizeHeader(field.Label) {
		return true
	}

	for _, alias := range field.Aliases {
		if normalized == normalizeHeader(alias) {
			return true
		}
	}

	return false
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}
