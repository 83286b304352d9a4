package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"standards-gateway/common"
)

// chineseFontCandidates is the Linux-first subset of _find_chinese_font's
// search path relevant to the container images this gateway ships in;
// Windows/macOS paths from the source are dropped since the service
// only ever runs on Linux.
var chineseFontCandidates = []string{
	"/usr/share/fonts/truetype/chinese/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/chinese/wqy-zenhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-zenhei.ttc",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/arphic/uming.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// FindChineseFont returns the first CJK-capable font file present on
// disk, or "" if none are installed.
func FindChineseFont() string {
	for _, path := range chineseFontCandidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// PDFExporter renders a task's cleaned markdown answer to a PDF file
// using goldmark for the markdown→HTML pass and fpdf for layout,
// avoiding any headless-browser dependency.
type PDFExporter struct {
	fontPath string
}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{fontPath: FindChineseFont()}
}

// Export writes title and the cleaned markdown content to outputPath as
// a single PDF, grounded on export_task_result_to_pdf/_export_markdown_to_pdf.
func (e *PDFExporter) Export(title, markdownContent, outputPath string) error {
	cleaned := CleanMarkdownContent(markdownContent)

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(cleaned), &htmlBuf); err != nil {
		return fmt.Errorf("convert markdown to html: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)

	fontFamily := "Arial"
	if e.fontPath != "" {
		pdf.AddUTF8Font("cjk", "", e.fontPath)
		fontFamily = "cjk"
	} else {
		common.Logger.Warn("no CJK font found, PDF export may not render Chinese text correctly")
	}

	pdf.AddPage()
	pdf.SetFont(fontFamily, "", 18)
	pdf.MultiCell(0, 10, title, "", "C", false)
	pdf.Ln(4)

	renderHTMLToPDF(pdf, fontFamily, htmlBuf.String())

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// renderHTMLToPDF walks the goldmark-produced HTML tree, mapping block
// elements onto fpdf MultiCell calls with the font size/style that
// element implies. Inline formatting (strong/em) is flattened to plain
// text; the export is a readable document, not a pixel-faithful one.
func renderHTMLToPDF(pdf *fpdf.Fpdf, fontFamily, htmlContent string) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		pdf.MultiCell(0, 6, htmlContent, "", "L", false)
		return
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1":
				writeBlock(pdf, fontFamily, "B", 16, textOf(n))
				return
			case "h2":
				writeBlock(pdf, fontFamily, "B", 14, textOf(n))
				return
			case "h3", "h4", "h5", "h6":
				writeBlock(pdf, fontFamily, "B", 12, textOf(n))
				return
			case "p":
				writeBlock(pdf, fontFamily, "", 11, textOf(n))
				return
			case "li":
				writeBlock(pdf, fontFamily, "", 11, "• "+textOf(n))
				return
			case "pre", "code":
				writeBlock(pdf, fontFamily, "", 10, textOf(n))
				return
			case "hr":
				pdf.Ln(2)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func writeBlock(pdf *fpdf.Fpdf, fontFamily, style string, size float64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	pdf.SetFont(fontFamily, style, size)
	pdf.MultiCell(0, size/2.2+3, text, "", "L", false)
	pdf.Ln(1)
}

// textOf collects an element's text content, collapsing descendants
// without recursing into nested block elements handled separately.
func textOf(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
