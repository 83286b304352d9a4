package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"standards-gateway/apperr"
	"standards-gateway/config"
	"standards-gateway/store"
)

func TestValidTaskType(t *testing.T) {
	assert.True(t, validTaskType(config.TypeReview))
	assert.True(t, validTaskType(config.TypeComparison))
	assert.False(t, validTaskType("not_a_real_type"))
	assert.False(t, validTaskType(""))
}

func TestTaskLookupError(t *testing.T) {
	ae, ok := apperr.As(taskLookupError(store.ErrTaskNotFound))
	if assert.True(t, ok) {
		assert.Equal(t, apperr.KindNotFound, ae.Kind)
	}

	ae, ok = apperr.As(taskLookupError(store.ErrNotOwner))
	if assert.True(t, ok) {
		assert.Equal(t, apperr.KindForbidden, ae.Kind)
	}
}

func TestQueryParamsCollapsesToFirstValue(t *testing.T) {
	req := httptest.NewRequest("GET", "/?page=2&per_page=10", nil)
	e := newEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	params := queryParams(c)
	assert.Equal(t, "2", params["page"])
	assert.Equal(t, "10", params["per_page"])
}
