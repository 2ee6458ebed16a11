package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("Should authenticate every request with the API key header", func(t *testing.T) {
		client := NewClient("https://crm.example.com", "sk-live-123")

		assert.Equal(t, "sk-live-123", client.http.Header.Get("X-API-Key"))
		assert.Equal(t, "application/json", client.http.Header.Get("Content-Type"))
	})

	t.Run("Should leave HTTP-level retries off", func(t *testing.T) {
		client := NewClient("https://crm.example.com", "sk-live-123")

		// Retry policy lives in the upload pipeline; a transport retry count
		// here would multiply its attempt budget
		assert.Zero(t, client.http.RetryCount)
	})

	t.Run("Should trim trailing slashes from the base URL", func(t *testing.T) {
		client := NewClient("https://crm.example.com///", "key")

		assert.Equal(t, "https://crm.example.com/api/v1/bulk/companies", client.buildURL("api/v1/bulk/companies"))
		assert.Equal(t, "https://crm.example.com/health", client.buildURL("/health"))
	})
}

func TestBulkUpsertEndpoints(t *testing.T) {
	t.Run("Should reject an unknown entity type before any request", func(t *testing.T) {
		client := NewClient("https://crm.example.com", "key")

		_, err := client.BulkUpsert(context.Background(), "invoice", nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown entity type")
	})
}
