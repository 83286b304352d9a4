package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// excelColumns selects headers, field keys, column widths, and which
// columns get dynamic row-height treatment, per task type. Grounded on
// export_task_results_to_excel's task_type branch.
type excelColumns struct {
	headers       []string
	fieldKeys     []string
	columnWidths  []float64
	longTextCols  map[int]bool // 1-indexed column numbers
}

func columnsFor(taskType string) excelColumns {
	switch taskType {
	case "standard_recommendation":
		return excelColumns{
			headers:      []string{"排序序号", "项目名称", "原文内容", "参考标准"},
			fieldKeys:    []string{"sn", "projectName", "originalText", "referenceStandard"},
			columnWidths: []float64{10, 25, 50, 40},
			longTextCols: map[int]bool{3: true, 4: true},
		}
	case "standard_compliance":
		return excelColumns{
			headers:      []string{"排序序号", "项目名称", "原文内容", "是否符合标准", "建议改写内容", "参考标准"},
			fieldKeys:    []string{"sn", "projectName", "originalText", "isCompliant", "suggestedRewrite", "referenceStandard"},
			columnWidths: []float64{10, 25, 40, 15, 40, 35},
			longTextCols: map[int]bool{3: true, 5: true, 6: true},
		}
	default: // standard_review
		return excelColumns{
			headers:      []string{"序号", "问题位置", "原文", "问题描述", "修改建议"},
			fieldKeys:    []string{"sn", "issueLocation", "originalText", "issueDescription", "recommendedModification"},
			columnWidths: []float64{8, 20, 40, 30, 40},
			longTextCols: map[int]bool{3: true, 4: true, 5: true},
		}
	}
}

// maxExcelRows bounds a single export, matching the paginator's own
// bound on how much data one task can realistically accumulate.
const maxExcelRows = 10000

// TaskInfo is the subset of extract.TaskInfo the Excel exporter reads,
// duplicated locally to avoid a dependency from export on extract.
type TaskInfo struct {
	ID              string
	Title           string
	TaskType        string
	TaskTypeDisplay string
	Status          string
	StatusDisplay   string
	CreatedAt       string
	ExportedAt      string
}

// Excel writes items (a slice of field-name keyed maps) to outputPath as
// a styled worksheet: header band, frozen header row, auto-filter, and
// per-row dynamic height for long-text columns.
func Excel(items []map[string]interface{}, info TaskInfo, outputPath string) error {
	if len(items) > maxExcelRows {
		items = items[:maxExcelRows]
	}

	cols := columnsFor(info.TaskType)
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "任务结果"
	f.SetSheetName(f.GetSheetName(0), sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	contentStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	lastCol, _ := excelize.ColumnNumberToName(len(cols.headers))
	_ = f.MergeCell(sheet, "A1", fmt.Sprintf("%s1", lastCol))
	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("任务结果导出 - %s", info.Title))
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	_ = f.SetCellValue(sheet, "A3", "任务类型：")
	_ = f.SetCellValue(sheet, "B3", info.TaskTypeDisplay)
	_ = f.SetCellValue(sheet, "D3", "创建时间：")
	_ = f.SetCellValue(sheet, "E3", info.CreatedAt)
	_ = f.SetCellValue(sheet, "A4", "任务状态：")
	_ = f.SetCellValue(sheet, "B4", info.StatusDisplay)
	_ = f.SetCellValue(sheet, "D4", "导出时间：")
	_ = f.SetCellValue(sheet, "E4", info.ExportedAt)

	const headerRow = 6
	for i, header := range cols.headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for i, width := range cols.columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}

	dataStartRow := headerRow + 1
	for rowIdx, item := range items {
		row := dataStartRow + rowIdx
		for colIdx, key := range cols.fieldKeys {
			col, _ := excelize.ColumnNumberToName(colIdx + 1)
			cell := fmt.Sprintf("%s%d", col, row)

			value := item[key]
			if key == "sn" && (value == nil || value == "") {
				value = rowIdx + 1
			}
			text := fmt.Sprintf("%v", value)
			if value == nil {
				text = ""
			}
			_ = f.SetCellValue(sheet, cell, text)
			_ = f.SetCellStyle(sheet, cell, cell, contentStyle)

			if cols.longTextCols[colIdx+1] && len(text) > 50 {
				height := float64(min(max(15, (len(text)/50)*15), 100))
				current, _ := f.GetRowHeight(sheet, row)
				if current < height {
					_ = f.SetRowHeight(sheet, row, height)
				}
			}
		}
	}

	_ = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      dataStartRow - 1,
		TopLeftCell: fmt.Sprintf("A%d", dataStartRow),
		ActivePane:  "bottomLeft",
	})

	if len(items) > 0 {
		lastDataCol, _ := excelize.ColumnNumberToName(len(cols.headers))
		filterRange := fmt.Sprintf("A%d:%s%d", headerRow, lastDataCol, dataStartRow+len(items)-1)
		_ = f.AutoFilter(sheet, filterRange, nil)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save excel file: %w", err)
	}
	return nil
}
