package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanMarkdownContentEmpty(t *testing.T) {
	assert.Equal(t, "# 任务结果\n\n暂无处理结果", CleanMarkdownContent(""))
}

func TestCleanMarkdownContentStripsTripleFence(t *testing.T) {
	in := "```markdown\n# 标题\n\n内容\n```"
	out := CleanMarkdownContent(in)
	assert.True(t, strings.HasPrefix(out, "# 标题"))
}

func TestCleanMarkdownContentStripsQuadFence(t *testing.T) {
	in := "````markdown\n# 标题\n\n内容\n````"
	out := CleanMarkdownContent(in)
	assert.True(t, strings.HasPrefix(out, "# 标题"))
}

func TestCleanMarkdownContentAddsHeadingWhenMissing(t *testing.T) {
	out := CleanMarkdownContent("just some text")
	assert.True(t, strings.HasPrefix(out, "# 任务结果"))
}

func TestCleanMarkdownContentRemovesMetadataBanner(t *testing.T) {
	in := "# 标题\n\n> **文档类型**：PDF\n> **转换时间**：2026-01-01\n---\n\n正文内容"
	out := CleanMarkdownContent(in)
	assert.NotContains(t, out, "文档类型")
	assert.Contains(t, out, "正文内容")
}

func TestCleanMarkdownContentCollapsesBlankLines(t *testing.T) {
	in := "# 标题\n\n\n\n正文"
	out := CleanMarkdownContent(in)
	assert.NotContains(t, out, "\n\n\n")
}

func TestMarkdownRawReturnsCleaned(t *testing.T) {
	in := "```markdown\n# 标题\n```"
	out, err := Markdown(in, FormatRaw, "任务结果")
	require.NoError(t, err)
	assert.Equal(t, "# 标题", out)
}

func TestMarkdownPreviewRendersHTMLPage(t *testing.T) {
	in := "```markdown\n# 标题\n内容\n```"
	out, err := Markdown(in, FormatPreview, "任务结果 - t1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>任务结果 - t1</title>")
	assert.Contains(t, out, "<h1>标题</h1>")
	assert.Contains(t, out, "<p>内容</p>")
}

func TestMarkdownPreviewDefaultsTitle(t *testing.T) {
	out, err := Markdown("内容", FormatPreview, "")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>任务结果</title>")
}
