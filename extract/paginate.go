package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"standards-gateway/store"
)

var ErrNoData = fmt.Errorf("task result data is empty or could not be parsed")
var ErrNotAList = fmt.Errorf("task result data is not in list format")

// requiredFieldsByType mirrors required_fields_map; unlisted types fall
// back to requiring only `sn`.
var requiredFieldsByType = map[string][]string{
	"standard_review":         {"sn", "issueLocation", "originalText", "issueDescription", "recommendedModification"},
	"standard_recommendation": {"sn", "projectName", "originalText", "referenceStandard"},
	"standard_compliance":     {"sn", "projectName", "originalText", "isCompliant", "suggestedRewrite", "referenceStandard"},
}

func requiredFields(taskType string) []string {
	if fields, ok := requiredFieldsByType[taskType]; ok {
		return fields
	}
	return []string{"sn"}
}

// Pagination mirrors the pagination envelope's JSON field names.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// TaskInfo mirrors the task_info envelope attached to a paginated result.
type TaskInfo struct {
	ID              string `json:"id"`
	TaskType        string `json:"task_type"`
	TaskTypeDisplay string `json:"task_type_display"`
	Status          string `json:"status"`
	StatusDisplay   string `json:"status_display"`
	Title           string `json:"title"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// PageResult is the full response body for a paginated results query.
type PageResult struct {
	Items      []interface{} `json:"items"`
	Pagination Pagination    `json:"pagination"`
	TaskInfo   TaskInfo      `json:"task_info"`
	Warnings   []string      `json:"-"` // logged, never serialized to the client
}

// Paginate reproduces get_task_results_paginated: parse the latest
// result's answer (or fall back to full_response.outputs), validate
// required fields as warnings only, sort by `sn`, then slice the page.
func Paginate(task *store.Task, latest *store.TaskResult, page, perPage int, sortBy, sortOrder string) (*PageResult, error) {
	if !store.PaginationSupportedTypes[task.TaskType] {
		return nil, fmt.Errorf("task type '%s' does not support paginated results", store.TaskTypeDisplay(task.TaskType))
	}
	if task.Status != store.StatusCompleted {
		return nil, fmt.Errorf("task status is '%s', only completed tasks can be paginated", store.StatusDisplay(task.Status))
	}

	if latest == nil {
		return emptyPage(task, page, perPage), nil
	}

	items, ok := ParseItemsList(latest.Answer)
	if !ok {
		items, ok = itemsFromFullResponse(latest.FullResponse)
	}
	if !ok || len(items) == 0 {
		return nil, ErrNoData
	}

	maps := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]interface{}); ok {
			maps = append(maps, m)
		}
	}
	if len(maps) == 0 {
		return nil, ErrNotAList
	}

	var warnings []string
	for i, item := range maps {
		for _, field := range requiredFields(task.TaskType) {
			if _, present := item[field]; !present {
				warnings = append(warnings, fmt.Sprintf("item %d missing field %s", i+1, field))
			}
		}
	}

	if sortBy == "sn" {
		sortBySN(maps, strings.EqualFold(sortOrder, "desc"))
	}

	totalItems := len(maps)
	totalPages := (totalItems + perPage - 1) / perPage
	if page > totalPages && totalPages > 0 {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}

	pageItems := make([]interface{}, 0, end-start)
	for _, m := range maps[start:end] {
		pageItems = append(pageItems, m)
	}

	return &PageResult{
		Items: pageItems,
		Pagination: Pagination{
			CurrentPage: page,
			PerPage:     perPage,
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
		TaskInfo: taskInfoOf(task),
		Warnings: warnings,
	}, nil
}

// maxExportRows bounds the Excel export's full-result materialisation,
// matching the exporter's own row cap.
const maxExportRows = 10000

// AllItems returns every row for a task's latest result, sorted exactly as
// Paginate would, bypassing the page/per_page slice entirely, used by the
// Excel exporter which needs the full set rather than one page of it.
func AllItems(task *store.Task, latest *store.TaskResult, sortBy, sortOrder string) ([]map[string]interface{}, error) {
	page, err := Paginate(task, latest, 1, maxExportRows, sortBy, sortOrder)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(page.Items))
	for _, it := range page.Items {
		if m, ok := it.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func emptyPage(task *store.Task, page, perPage int) *PageResult {
	return &PageResult{
		Items: []interface{}{},
		Pagination: Pagination{
			CurrentPage: page,
			PerPage:     perPage,
			TotalItems:  0,
			TotalPages:  0,
			HasNext:     false,
			HasPrev:     false,
		},
		TaskInfo: taskInfoOf(task),
	}
}

func taskInfoOf(task *store.Task) TaskInfo {
	info := TaskInfo{
		ID:              task.ID,
		TaskType:        task.TaskType,
		TaskTypeDisplay: store.TaskTypeDisplay(task.TaskType),
		Status:          task.Status,
		StatusDisplay:   store.StatusDisplay(task.Status),
		Title:           task.Title,
	}
	if !task.CreatedAt.IsZero() {
		info.CreatedAt = task.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if !task.UpdatedAt.IsZero() {
		info.UpdatedAt = task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return info
}

// itemsFromFullResponse applies the data.outputs/outputs + field
// precedence search to full_response when the answer column itself
// could not be parsed into a list.
func itemsFromFullResponse(fullResponse string) ([]interface{}, bool) {
	if fullResponse == "" {
		return nil, false
	}
	var full map[string]interface{}
	if err := json.Unmarshal([]byte(fullResponse), &full); err != nil {
		return nil, false
	}
	outputs := findOutputs(full)
	if outputs == nil {
		return nil, false
	}
	for _, field := range answerFieldPriority {
		v, ok := outputs[field]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if list, ok := ParseItemsList(val); ok {
				return list, true
			}
		case []interface{}:
			return val, true
		}
	}
	return nil, false
}

// sortBySN sorts by numeric `sn` when every item's sn parses as an
// integer, falling back to string comparison otherwise, matching the
// source's try/except ValueError fallback.
func sortBySN(items []map[string]interface{}, desc bool) {
	allNumeric := true
	for _, item := range items {
		if _, err := snAsInt(item); err != nil {
			allNumeric = false
			break
		}
	}

	less := func(i, j int) bool {
		if allNumeric {
			a, _ := snAsInt(items[i])
			b, _ := snAsInt(items[j])
			if desc {
				return a > b
			}
			return a < b
		}
		a := snAsString(items[i])
		b := snAsString(items[j])
		if desc {
			return a > b
		}
		return a < b
	}
	sort.SliceStable(items, less)
}

func snAsInt(item map[string]interface{}) (int, error) {
	v, ok := item["sn"]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unsupported sn type")
	}
}

func snAsString(item map[string]interface{}) string {
	v, ok := item["sn"]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
