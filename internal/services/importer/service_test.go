package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureEvent(t *testing.T) {
	t.Run("Should emit a cancelled status with no message for a cancelled run", func(t *testing.T) {
		err := fmt.Errorf("upload cancelled after batch 1/3: %w", context.Canceled)

		event := failureEvent("sess-1", err)

		assert.Equal(t, "cancelled", event["status"])
		assert.Equal(t, "sess-1", event["session_id"])
		_, present := event["message"]
		assert.False(t, present, "cancellation must not carry an error message")
	})

	t.Run("Should recognize cancellation through the uploader's wrapping", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		fake := &fakeUpserter{
			respond: func(call int, records []Record) (*BulkResponse, error) {
				cancel()
				return &BulkResponse{Total: len(records), Created: len(records)}, nil
			},
		}

		_, err := NewUploader(fake, testConfig()).Upload(ctx, EntityCompany, makeRecords(600), nil)
		require.Error(t, err)

		event := failureEvent("sess-2", err)
		assert.Equal(t, "cancelled", event["status"])
	})

	t.Run("Should emit an error status with the message for a genuine failure", func(t *testing.T) {
		err := fmt.Errorf("batch 2/3 failed: %w", errors.New("server unavailable"))

		event := failureEvent("sess-3", err)

		assert.Equal(t, "error", event["status"])
		assert.Contains(t, event["message"], "batch 2/3 failed")
	})
}

func TestStatusForError(t *testing.T) {
	t.Run("Should record cancelled runs distinctly from failed ones", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Equal(t, "cancelled", statusForError(cancelled))
		assert.Equal(t, "failed", statusForError(context.Background()))
	})
}
