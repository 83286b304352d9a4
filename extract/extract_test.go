package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTextStripsJSONFence(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	out := FromText(in)
	assert.Equal(t, `{"a":1}`, out)
}

func TestFromTextStripsGenericFence(t *testing.T) {
	in := "```\n[1,2,3]\n```"
	out := FromText(in)
	assert.Equal(t, "[1,2,3]", out)
}

func TestFromTextLeavesUnfencedJSONAlone(t *testing.T) {
	in := `{"a":1}`
	assert.Equal(t, in, FromText(in))
}

func TestFromTextIsIdempotent(t *testing.T) {
	in := "```json\n[{\"sn\":1}]\n```"
	once := FromText(in)
	twice := FromText(once)
	assert.Equal(t, once, twice)
}

func TestFromTextFallsBackOnInvalidJSON(t *testing.T) {
	in := "```json\nnot valid json\n```"
	assert.Equal(t, in, FromText(in))
}

func TestParseItemsListDirectArray(t *testing.T) {
	items, ok := ParseItemsList(`[{"sn":1},{"sn":2}]`)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestParseItemsListSingleFence(t *testing.T) {
	items, ok := ParseItemsList("```json\n[{\"sn\":1}]\n```")
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestParseItemsListMultiBlock(t *testing.T) {
	raw := "```json\n{\"sn\":1,\"issueLocation\":\"a\"}\n```\n```json\n{\"sn\":2,\"issueLocation\":\"b\"}\n```"
	items, ok := ParseItemsList(raw)
	require.True(t, ok)
	require.Len(t, items, 2)
	first, ok := items[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), first["sn"])
}

func TestParseItemsListUnparseable(t *testing.T) {
	_, ok := ParseItemsList("not json at all")
	assert.False(t, ok)
}

func TestExtractAnswerFromTopLevel(t *testing.T) {
	s := NewService()
	res, err := s.Extract("t1", "u1", "standard_review", map[string]interface{}{
		"answer":      "[{\"sn\":1}]",
		"message_id":  "m1",
		"conversation_id": "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "[{\"sn\":1}]", res.Answer)
	assert.Equal(t, "m1", res.MessageID)
	assert.Equal(t, "c1", res.ConversationID)
}

func TestExtractAnswerFromDataOutputs(t *testing.T) {
	s := NewService()
	res, err := s.Extract("t1", "u1", "standard_review", map[string]interface{}{
		"data": map[string]interface{}{
			"outputs": map[string]interface{}{
				"审查意见": "```json\n[{\"sn\":1}]\n```",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"sn":1}]`, res.Answer)
}

func TestExtractAnswerFromPlainOutputsAnswerField(t *testing.T) {
	s := NewService()
	res, err := s.Extract("t1", "u1", "standard_review", map[string]interface{}{
		"outputs": map[string]interface{}{
			"answer": "hello",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Answer)
}

func TestExtractNonObjectBodyStillPersists(t *testing.T) {
	s := NewService()
	res, err := s.Extract("t1", "u1", "standard_review", "a bare string response")
	require.NoError(t, err)
	assert.NotEmpty(t, res.FullResponse)
}
