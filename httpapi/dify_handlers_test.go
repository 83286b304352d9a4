package httpapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveScenarioDefaultsLegacyPaths(t *testing.T) {
	e := newEcho()

	req := httptest.NewRequest("GET", "/api/dify/v2/conversations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	assert.Equal(t, "multilingual_qa", resolveScenario(c))

	req2 := httptest.NewRequest("GET", "/api/dify/v2/standard_query/conversations", nil)
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)
	c2.SetParamNames("scenario")
	c2.SetParamValues("standard_query")
	assert.Equal(t, "standard_query", resolveScenario(c2))
}
