package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationErrorKinds(t *testing.T) {
	tests := []struct {
		kind   GenerationFailure
		target error
	}{
		{FailureRefusal, ErrModelRefusal},
		{FailureSafety, ErrSafetyBlock},
		{FailureNoOutput, ErrNoOutput},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("job 3: %w", &GenerationError{Kind: tt.kind, Message: "nope"})
			assert.True(t, errors.Is(err, tt.target))

			var genErr *GenerationError
			assert.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.kind, genErr.Kind)
		})
	}
}

func TestGenerationErrorMessage(t *testing.T) {
	err := &GenerationError{Kind: FailureRefusal, Message: "I can't draw that"}
	assert.Equal(t, "model refusal: I can't draw that", err.Error())
	assert.Equal(t, "no output", (&GenerationError{Kind: FailureNoOutput}).Error())
}

func TestWatermarkActive(t *testing.T) {
	var nilCfg *WatermarkConfig
	assert.False(t, nilCfg.Active())
	assert.False(t, (&WatermarkConfig{Text: "hi"}).Active())
	assert.True(t, (&WatermarkConfig{Enabled: true, Kind: WatermarkText, Text: "hi"}).Active())
	assert.False(t, (&WatermarkConfig{Enabled: true, Kind: WatermarkLogo}).Active())
	assert.True(t, (&WatermarkConfig{Enabled: true, Kind: WatermarkLogo, Logo: &Image{Data: []byte{1}}}).Active())
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusGenerating.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestNewBatchResponse(t *testing.T) {
	b := &Batch{
		ID: "b1",
		Jobs: []Job{
			{ID: "a", Status: StatusDone, Result: &Image{Data: []byte("abc"), MIMEType: "image/png"}},
			{ID: "b", Status: StatusFailed, Error: "boom"},
			{ID: "c", Status: StatusPending},
		},
	}

	resp := NewBatchResponse(b)
	assert.False(t, resp.Finished)
	assert.Equal(t, 1, resp.Counts["done"])
	assert.Equal(t, 1, resp.Counts["failed"])
	assert.Equal(t, 1, resp.Counts["pending"])
	assert.Equal(t, int64(3), resp.Jobs[0].FileSize)
	assert.Equal(t, "boom", resp.Jobs[1].Error)
}
