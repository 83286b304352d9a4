// Package export renders a task's stored answer into the download
// formats the detail view offers: PDF, raw/preview Markdown, and Excel
// for the paginated task types. Grounded on document_service.py's
// clean/convert/export chain.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

// metadataPatterns are the banner lines a model sometimes prepends,
// describing the conversion it performed rather than task content.
var metadataPatterns = []string{
	"> **文档类型**：", "> **转换时间**：", "> **源格式**：",
	"**文档类型**：", "**转换时间**：", "**源格式**：",
	"文档类型：", "转换时间：", "源格式：",
}

// CleanMarkdownContent strips an outer code-fence wrapper (````markdown,
// ```markdown, ````, ```), removes metadata banner lines, collapses
// consecutive blank lines, and ensures the result starts with a heading.
// Grounded on _clean_markdown_content.
func CleanMarkdownContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return "# 任务结果\n\n暂无处理结果"
	}

	stripped := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(stripped, "````markdown") && strings.HasSuffix(stripped, "````"):
		stripped = strings.TrimSpace(stripped[len("````markdown") : len(stripped)-4])
	case strings.HasPrefix(stripped, "```markdown") && strings.HasSuffix(stripped, "```"):
		stripped = strings.TrimSpace(stripped[len("```markdown") : len(stripped)-3])
	case strings.HasPrefix(stripped, "````") && strings.HasSuffix(stripped, "````"):
		stripped = strings.TrimSpace(stripped[4 : len(stripped)-4])
	case strings.HasPrefix(stripped, "```") && strings.HasSuffix(stripped, "```"):
		lines := strings.Split(stripped, "\n")
		if len(lines) >= 2 {
			first := strings.TrimSpace(lines[0])
			last := strings.TrimSpace(lines[len(lines)-1])
			if strings.HasPrefix(first, "```") && last == "```" {
				stripped = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
			}
		}
	}

	cleaned := removeMetadataInfo(stripped)
	if strings.TrimSpace(cleaned) == "" {
		return "# 任务结果\n\n暂无处理结果"
	}
	if !strings.HasPrefix(cleaned, "#") {
		cleaned = "# 任务结果\n\n" + cleaned
	}

	return collapseBlankLines(cleaned)
}

// removeMetadataInfo drops a banner section bounded by a metadata line
// and the next separator line (---, ***, ___), grounded on
// _remove_metadata_info.
func removeMetadataInfo(content string) string {
	if content == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	skipping := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		isMetadata := false
		for _, pattern := range metadataPatterns {
			if strings.Contains(trimmed, pattern) {
				isMetadata = true
				break
			}
		}
		isSeparator := trimmed == "---" || trimmed == "***" || trimmed == "___" || strings.HasPrefix(trimmed, "---")

		if isMetadata {
			skipping = true
			continue
		}
		if skipping && isSeparator {
			skipping = false
			continue
		}
		if skipping {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimLeft(strings.Join(cleaned, "\n"), "\n")
}

// collapseBlankLines removes consecutive empty lines, keeping the rest
// of the document's line breaks intact.
func collapseBlankLines(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	prevEmpty := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		empty := trimmed == ""
		if empty && prevEmpty {
			continue
		}
		out = append(out, trimmed)
		prevEmpty = empty
	}
	return strings.Join(out, "\n")
}

// Format selects between the raw stored answer and the cleaned preview
// rendering for the Markdown export endpoint.
type Format string

const (
	FormatRaw     Format = "raw"
	FormatPreview Format = "preview"
)

// Markdown returns the bytes to serve for a task's Markdown export,
// matching export_task_result_to_markdown's two modes: raw serves the
// cleaned Markdown source, preview renders it to HTML and wraps the
// result in a standalone page via htmlPage.
func Markdown(rawAnswer string, format Format, title string) (string, error) {
	cleaned := CleanMarkdownContent(rawAnswer)
	if format == FormatRaw {
		return cleaned, nil
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(cleaned), &buf); err != nil {
		return "", fmt.Errorf("convert markdown to html: %w", err)
	}
	return htmlPage(buf.String(), title), nil
}

// htmlPage wraps rendered body HTML in a standalone document, grounded
// on _create_html_page: a centered column, GitHub-ish typography, and a
// header/footer banner around the content.
func htmlPage(bodyHTML, title string) string {
	if title == "" {
		title = "任务结果"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%[1]s</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', 'Helvetica Neue', Arial, sans-serif; line-height: 1.6; color: #333; max-width: 900px; margin: 0 auto; padding: 20px; background-color: #fff; }
h1, h2, h3, h4, h5, h6 { color: #2c3e50; margin-top: 24px; margin-bottom: 16px; font-weight: 600; line-height: 1.25; }
h1 { padding-bottom: 0.3em; border-bottom: 1px solid #eaecef; }
p { margin-bottom: 16px; }
code { background-color: #f1f3f4; border-radius: 3px; font-size: 85%%; margin: 0; padding: 0.2em 0.4em; }
pre { background-color: #f6f8fa; border-radius: 6px; font-size: 85%%; line-height: 1.45; overflow: auto; padding: 16px; }
pre code { background-color: transparent; border: 0; padding: 0; }
blockquote { border-left: 4px solid #dfe2e5; margin: 0; padding: 0 16px; color: #6a737d; }
table { border-collapse: collapse; border-spacing: 0; width: 100%%; margin-bottom: 16px; }
table th, table td { border: 1px solid #dfe2e5; padding: 6px 13px; }
table th { background-color: #f6f8fa; font-weight: 600; }
ul, ol { padding-left: 2em; margin-bottom: 16px; }
li { margin-bottom: 0.25em; }
.header { text-align: center; margin-bottom: 40px; padding-bottom: 20px; border-bottom: 2px solid #e1e4e8; }
.footer { margin-top: 40px; padding-top: 20px; border-top: 1px solid #e1e4e8; text-align: center; color: #586069; font-size: 14px; }
@media print { body { max-width: none; margin: 0; padding: 15px; } }
</style>
</head>
<body>
<div class="header">
<h1>%[1]s</h1>
<p>导出时间: %[2]s</p>
</div>
<div class="content">
%[3]s
</div>
<div class="footer">
<p>此文档由系统自动生成</p>
</div>
</body>
</html>`, html.EscapeString(title), time.Now().UTC().Format("2006年01月02日 15:04:05"), bodyHTML)
}
