// Package extract turns a Dify-style upstream answer payload into a
// persisted TaskResult row, and serves the paginated list view the
// standard_review/recommendation/compliance task types need, grounded on
// task_service.py's _extract_json_from_text / process_dify_response /
// get_task_results_paginated.
package extract

import (
	"encoding/json"
	"strings"
)

// FromText strips a single leading ```json ... ``` or ``` ... ``` fence
// from text and returns the unwrapped content, validating it parses as
// JSON before committing to the strip; on any failure it returns the
// original text unchanged. Idempotent: re-running it on already-clean
// text is a no-op.
func FromText(text string) string {
	if text == "" {
		return text
	}
	trimmed := strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(trimmed, "```json"):
		if end := strings.LastIndex(trimmed, "```"); end > 6 {
			trimmed = strings.TrimSpace(trimmed[7:end])
		}
	case strings.HasPrefix(trimmed, "```"):
		lines := strings.Split(trimmed, "\n")
		if len(lines) > 2 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			trimmed = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	var probe interface{}
	if json.Unmarshal([]byte(trimmed), &probe) != nil {
		return text
	}
	return trimmed
}

// looksMultiBlock detects the shape a model sometimes emits: several
// ```json ... ``` fenced objects back to back, which is not valid JSON
// as a whole and needs line-by-line reassembly instead of a single
// fence strip.
func looksMultiBlock(text string) bool {
	return strings.Contains(text, "}\n```\n```json\n{") || strings.Count(text, "```json") > 1
}

// ParseMultiBlock reassembles consecutive ```json fenced objects into a
// slice, tracking fence state line by line the way the source's
// paginated-results path does. Objects that fail to parse are skipped,
// not fatal.
func ParseMultiBlock(text string) []interface{} {
	var blocks []interface{}
	var current strings.Builder
	inBlock := false

	flush := func() {
		if current.Len() == 0 {
			return
		}
		var obj interface{}
		if err := json.Unmarshal([]byte(current.String()), &obj); err == nil {
			blocks = append(blocks, obj)
		}
		current.Reset()
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "```json":
			inBlock = true
			current.Reset()
		case line == "```" && inBlock:
			inBlock = false
			flush()
		case inBlock:
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	flush() // trailing unterminated block, matches the source's leftover-buffer handling

	return blocks
}

// ParseItemsList attempts to recover a []interface{} from a raw answer
// string using the same precedence the source applies: direct JSON
// array parse, then the multi-block reassembly when the multi-fence
// signature is present, then a single fence-stripped parse.
func ParseItemsList(raw string) ([]interface{}, bool) {
	if raw == "" {
		return nil, false
	}

	var direct interface{}
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		if list, ok := direct.([]interface{}); ok {
			return list, true
		}
	}

	if looksMultiBlock(raw) {
		if blocks := ParseMultiBlock(raw); len(blocks) > 0 {
			return blocks, true
		}
	}

	cleaned := FromText(raw)
	var fromClean interface{}
	if err := json.Unmarshal([]byte(cleaned), &fromClean); err == nil {
		if list, ok := fromClean.([]interface{}); ok {
			return list, true
		}
	}

	return nil, false
}
