package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcelWritesReviewWorkbook(t *testing.T) {
	items := []map[string]interface{}{
		{"sn": 1, "issueLocation": "第3条", "originalText": "原文", "issueDescription": "描述", "recommendedModification": "建议"},
		{"sn": 2, "issueLocation": "第5条", "originalText": "原文2", "issueDescription": "描述2", "recommendedModification": "建议2"},
	}
	info := TaskInfo{
		ID: "t1", Title: "测试任务", TaskType: "standard_review",
		TaskTypeDisplay: "标准审查", Status: "completed", StatusDisplay: "已完成",
		CreatedAt: "2026-01-01T00:00:00Z", ExportedAt: "2026-01-02T00:00:00Z",
	}

	out := filepath.Join(t.TempDir(), "export.xlsx")
	err := Excel(items, info, out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestExcelRecommendationColumns(t *testing.T) {
	cols := columnsFor("standard_recommendation")
	assert.Equal(t, []string{"排序序号", "项目名称", "原文内容", "参考标准"}, cols.headers)
}

func TestExcelDefaultsToReviewColumns(t *testing.T) {
	cols := columnsFor("unknown_type")
	assert.Equal(t, []string{"序号", "问题位置", "原文", "问题描述", "修改建议"}, cols.headers)
}

func TestExcelTruncatesToMaxRows(t *testing.T) {
	items := make([]map[string]interface{}, maxExcelRows+50)
	for i := range items {
		items[i] = map[string]interface{}{"sn": i + 1}
	}
	info := TaskInfo{TaskType: "standard_review"}
	out := filepath.Join(t.TempDir(), "big.xlsx")
	err := Excel(items, info, out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}
