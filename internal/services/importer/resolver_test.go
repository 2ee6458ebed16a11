package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHeaders(t *testing.T) {
	t.Run("Should match headers by key, label and alias", func(t *testing.T) {
		headers := []string{"name", "Website", "LinkedIn"}
		mapping := ResolveHeaders(headers, companyCatalog)

		assert.Equal(t, "name", mapping["name"])
		assert.Equal(t, "domain", mapping["Website"])
		assert.Equal(t, "linkedin_url", mapping["LinkedIn"])
	})

	t.Run("Should match case-insensitively with surrounding whitespace", func(t *testing.T) {
		headers := []string{"  EMAIL  ", "First Name"}
		mapping := ResolveHeaders(headers, contactCatalog)

		assert.Equal(t, "email", mapping["  EMAIL  "])
		assert.Equal(t, "first_name", mapping["First Name"])
	})

	t.Run("Should omit unmatched headers entirely", func(t *testing.T) {
		headers := []string{"name", "Mystery Column"}
		mapping := ResolveHeaders(headers, companyCatalog)

		assert.Equal(t, "name", mapping["name"])
		_, present := mapping["Mystery Column"]
		assert.False(t, present, "unmatched headers must not appear in the mapping")
	})

	t.Run("Should keep original header spelling as map keys", func(t *testing.T) {
		headers := []string{"Company Name"}
		mapping := ResolveHeaders(headers, companyCatalog)

		require.Len(t, mapping, 1)
		_, present := mapping["Company Name"]
		assert.True(t, present)
	})

	t.Run("Should resolve ties by catalog order", func(t *testing.T) {
		catalog := []FieldDefinition{
			{Key: "first", Label: "First", Aliases: []string{"shared"}},
			{Key: "second", Label: "Second", Aliases: []string{"shared"}},
		}

		mapping := ResolveHeaders([]string{"shared"}, catalog)
		assert.Equal(t, "first", mapping["shared"])
	})

	t.Run("Should be pure and idempotent", func(t *testing.T) {
		headers := []string{"name", "Website", "unknown"}

		first := ResolveHeaders(headers, companyCatalog)
		second := ResolveHeaders(headers, companyCatalog)

		assert.Equal(t, first, second)
		assert.Equal(t, []string{"name", "Website", "unknown"}, headers, "input slice must not be mutated")
	})

	t.Run("Should handle empty inputs", func(t *testing.T) {
		assert.Empty(t, ResolveHeaders(nil, companyCatalog))
		assert.Empty(t, ResolveHeaders([]string{"name"}, nil))
	})
}
