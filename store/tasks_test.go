package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStatusFilterIgnoresUnknown(t *testing.T) {
	assert.Equal(t, []string{StatusProcessing, StatusFailed}, ParseStatusFilter("processing,failed"))
	assert.Nil(t, ParseStatusFilter("bogus"))
	assert.Equal(t, []string{StatusUploaded}, ParseStatusFilter(" uploaded , bogus "))
}

func TestClampPerPageBoundaries(t *testing.T) {
	assert.Equal(t, 20, ClampPerPage(0))
	assert.Equal(t, 1, ClampPerPage(1))
	assert.Equal(t, 100, ClampPerPage(100))
	assert.Equal(t, 100, ClampPerPage(101))
}

func TestIsLegalTransition(t *testing.T) {
	assert.True(t, isLegalTransition(StatusPending, StatusUploading))
	assert.True(t, isLegalTransition(StatusUploading, StatusUploaded))
	assert.True(t, isLegalTransition(StatusUploading, StatusFailed))
	assert.True(t, isLegalTransition(StatusUploaded, StatusProcessing))
	assert.True(t, isLegalTransition(StatusProcessing, StatusCompleted))
	assert.True(t, isLegalTransition(StatusProcessing, StatusFailed))

	assert.False(t, isLegalTransition(StatusPending, StatusProcessing))
	assert.False(t, isLegalTransition(StatusUploaded, StatusCompleted))
	assert.False(t, isLegalTransition(StatusCompleted, StatusFailed))
	assert.False(t, isLegalTransition(StatusFailed, StatusPending))
}

func TestDefaultTitleFormat(t *testing.T) {
	at := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	title := DefaultTitle("standard_review", at)
	assert.Equal(t, "标准审查 task – 2026-03-05 14:30", title)
}
