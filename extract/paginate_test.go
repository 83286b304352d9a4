package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standards-gateway/store"
)

func taskFor(taskType, status string) *store.Task {
	return &store.Task{
		ID:        "t1",
		TaskType:  taskType,
		Status:    status,
		Title:     "title",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPaginateRejectsUnsupportedType(t *testing.T) {
	task := taskFor("standard_interpretation", store.StatusCompleted)
	_, err := Paginate(task, &store.TaskResult{Answer: `[{"sn":1}]`}, 1, 20, "sn", "asc")
	assert.Error(t, err)
}

func TestPaginateRejectsIncompleteTask(t *testing.T) {
	task := taskFor("standard_review", store.StatusProcessing)
	_, err := Paginate(task, &store.TaskResult{Answer: `[{"sn":1}]`}, 1, 20, "sn", "asc")
	assert.Error(t, err)
}

func TestPaginateEmptyResult(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	page, err := Paginate(task, nil, 1, 20, "sn", "asc")
	require.NoError(t, err)
	assert.Equal(t, 0, page.Pagination.TotalItems)
	assert.Empty(t, page.Items)
}

func TestPaginateSortsBySNAscending(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	answer := `[{"sn":3,"issueLocation":"c"},{"sn":1,"issueLocation":"a"},{"sn":2,"issueLocation":"b"}]`
	page, err := Paginate(task, &store.TaskResult{Answer: answer}, 1, 20, "sn", "asc")
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	first := page.Items[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["sn"])
}

func TestPaginateSortsBySNDescending(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	answer := `[{"sn":1},{"sn":2},{"sn":3}]`
	page, err := Paginate(task, &store.TaskResult{Answer: answer}, 1, 20, "sn", "desc")
	require.NoError(t, err)
	first := page.Items[0].(map[string]interface{})
	assert.Equal(t, float64(3), first["sn"])
}

func TestPaginateClampsPageToTotalPages(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	answer := `[{"sn":1},{"sn":2},{"sn":3}]`
	page, err := Paginate(task, &store.TaskResult{Answer: answer}, 99, 2, "sn", "asc")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
}

func TestPaginateHasNextHasPrev(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	answer := `[{"sn":1},{"sn":2},{"sn":3}]`
	page, err := Paginate(task, &store.TaskResult{Answer: answer}, 2, 1, "sn", "asc")
	require.NoError(t, err)
	assert.True(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)
}

func TestPaginateFallsBackToFullResponseOutputs(t *testing.T) {
	task := taskFor("standard_recommendation", store.StatusCompleted)
	full := `{"outputs":{"result":"[{\"sn\":1,\"projectName\":\"p\"}]"}}`
	page, err := Paginate(task, &store.TaskResult{Answer: "", FullResponse: full}, 1, 20, "sn", "asc")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestPaginateNoParsableDataErrors(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	_, err := Paginate(task, &store.TaskResult{Answer: "not json", FullResponse: ""}, 1, 20, "sn", "asc")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestPaginateMissingRequiredFieldsWarnsNotErrors(t *testing.T) {
	task := taskFor("standard_review", store.StatusCompleted)
	answer := `[{"sn":1}]` // missing issueLocation etc.
	page, err := Paginate(task, &store.TaskResult{Answer: answer}, 1, 20, "sn", "asc")
	require.NoError(t, err)
	assert.NotEmpty(t, page.Warnings)
	assert.Len(t, page.Items, 1)
}
