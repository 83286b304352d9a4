package extract

import (
	"encoding/json"
	"fmt"

	"standards-gateway/common"
	"standards-gateway/store"

	"github.com/google/uuid"
)

// answerFieldPriority is the field search order applied to an outputs
// object once the top-level `answer` is absent, grounded verbatim on
// process_dify_response's elif chain.
var answerFieldPriority = []string{"审查意见", "answer", "result", "content"}

// Service extracts and persists TaskResult rows from upstream responses.
type Service struct{}

func NewService() *Service { return &Service{} }

// Extract implements jobs.Extractor: body is the already JSON-decoded
// upstream answer (a map, typically), and the return value is ready to
// pass to store.CreateTaskResult.
func (s *Service) Extract(taskID, userID, taskType string, body interface{}) (*store.TaskResult, error) {
	difyData, ok := body.(map[string]interface{})
	if !ok {
		// Non-object payloads (bare strings, arrays) still get persisted,
		// wrapped the way the source wraps a response it couldn't parse.
		difyData = map[string]interface{}{"raw_response": fmt.Sprintf("%v", body)}
	}

	answer := extractAnswer(taskID, difyData)
	if answer == "" {
		common.Logger.WithField("task_id", taskID).Warn("could not extract an answer from upstream response")
	}

	fullResponse, err := json.Marshal(difyData)
	if err != nil {
		return nil, fmt.Errorf("marshal full response: %w", err)
	}

	var metadataJSON string
	if meta, ok := difyData["metadata"]; ok && meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			metadataJSON = string(raw)
		}
	}

	return &store.TaskResult{
		ID:             uuid.New().String(),
		TaskID:         taskID,
		UserID:         userID,
		MessageID:      stringField(difyData, "message_id"),
		ConversationID: stringField(difyData, "conversation_id"),
		Mode:           stringField(difyData, "mode"),
		Answer:         answer,
		ResultMetadata: metadataJSON,
		FullResponse:   string(fullResponse),
	}, nil
}

// extractAnswer applies the answer > outputs{审查意见|answer|result|content}
// > first-non-empty-string precedence, cleaning any markdown fencing
// found along the way.
func extractAnswer(taskID string, difyData map[string]interface{}) string {
	if answer, ok := difyData["answer"].(string); ok && answer != "" {
		return answer
	}

	outputs := findOutputs(difyData)
	if outputs == nil {
		return ""
	}

	for _, field := range answerFieldPriority {
		v, ok := outputs[field]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			common.Logger.WithField("task_id", taskID).WithField("field", field).Info("extracted answer from outputs field")
			return FromText(s)
		}
	}

	// No priority field matched: fall back to the first non-empty string
	// value present, in map iteration order (the source iterates dict
	// insertion order; Go map order is unspecified, so this is a
	// best-effort fallback rather than an exact replay).
	for key, v := range outputs {
		if s, ok := v.(string); ok && s != "" {
			common.Logger.WithField("task_id", taskID).WithField("field", key).Info("extracted answer from fallback outputs field")
			return FromText(s)
		}
	}
	return ""
}

// findOutputs locates the outputs object at data.outputs or outputs.
func findOutputs(difyData map[string]interface{}) map[string]interface{} {
	if data, ok := difyData["data"].(map[string]interface{}); ok {
		if outputs, ok := data["outputs"].(map[string]interface{}); ok {
			return outputs
		}
	}
	if outputs, ok := difyData["outputs"].(map[string]interface{}); ok {
		return outputs
	}
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
