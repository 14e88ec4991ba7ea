package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adverant/nexus/pdfocr-worker/internal/storage"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	// NoTextPlaceholder replaces the text of a page where nothing was recognized.
	NoTextPlaceholder = "[未识别到文本]"

	summaryFileSuffix = "_统计.txt"
)

var (
	summaryRule = strings.Repeat("=", 80)
	pageRule    = strings.Repeat("=", 60)
)

// Report is the final extraction artifact: a summary block followed by one
// section per page in ascending page order.
type Report struct {
	Source  string
	Summary Summary
	Pages   []PageResult
}

// SummaryText renders the summary block on its own.
func (r *Report) SummaryText() string {
	s := r.Summary
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(summaryRule + "\n")
	b.WriteString("处 理 总 结\n")
	b.WriteString(summaryRule + "\n")
	fmt.Fprintf(&b, "开始时间: %s\n", s.Start.Format(timestampLayout))
	fmt.Fprintf(&b, "结束时间: %s\n", s.End.Format(timestampLayout))
	fmt.Fprintf(&b, "耗时: %.1f秒\n", s.Elapsed().Seconds())
	fmt.Fprintf(&b, "总页数: %d\n", s.PageCount)
	b.WriteString("内容统计:\n")
	fmt.Fprintf(&b, "   总字符数: %d\n", s.Stats.TotalChars)
	fmt.Fprintf(&b, "   中文字符: %d\n", s.Stats.ChineseChars)
	fmt.Fprintf(&b, "   英文字符: %d\n", s.Stats.EnglishChars)
	fmt.Fprintf(&b, "   数字字符: %d\n", s.Stats.DigitChars)
	fmt.Fprintf(&b, "   总行数: %d\n", s.Stats.Lines)
	fmt.Fprintf(&b, "   问题数量: %d\n", s.Stats.Questions)
	fmt.Fprintf(&b, "   选项数量: %d\n", s.Stats.Options)
	b.WriteString(summaryRule + "\n")

	return b.String()
}

// String renders the full report.
func (r *Report) String() string {
	pages := make([]PageResult, len(r.Pages))
	copy(pages, r.Pages)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	sections := make([]string, 0, len(pages))
	for _, page := range pages {
		sections = append(sections, pageSection(page))
	}

	return r.SummaryText() + strings.Join(sections, "\n")
}

func pageSection(page PageResult) string {
	var b strings.Builder

	b.WriteString("\n" + pageRule + "\n")
	if page.Recognized {
		fmt.Fprintf(&b, "第 %d 页 (分析结果↓)\n", page.Index)
	} else {
		fmt.Fprintf(&b, "第 %d 页\n", page.Index)
	}
	b.WriteString(pageRule + "\n")
	fmt.Fprintf(&b, "本页统计: %d字符, %d中文, %d行\n",
		page.Stats.TotalChars, page.Stats.ChineseChars, page.Stats.Lines)

	if page.Recognized {
		b.WriteString(page.Text + "\n")
	} else {
		b.WriteString(NoTextPlaceholder + "\n")
	}

	return b.String()
}

// SummaryPathFor returns the companion summary path for a report path,
// e.g. "out/report.txt" -> "out/report_统计.txt".
func SummaryPathFor(reportPath string) string {
	ext := filepath.Ext(reportPath)
	return strings.TrimSuffix(reportPath, ext) + summaryFileSuffix
}

// WriteFiles writes the full report to path and the summary block to the
// companion file. It returns the companion path.
func (r *Report) WriteFiles(path string) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(r.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	summaryPath := SummaryPathFor(path)
	if err := os.WriteFile(summaryPath, []byte(r.SummaryText()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	return summaryPath, nil
}

// Record flattens the report for persistence.
func (r *Report) Record(jobID string) *storage.ReportRecord {
	s := r.Summary
	return &storage.ReportRecord{
		JobID:        jobID,
		SourcePath:   r.Source,
		PageCount:    s.PageCount,
		StartedAt:    s.Start,
		FinishedAt:   s.End,
		TotalChars:   s.Stats.TotalChars,
		ChineseChars: s.Stats.ChineseChars,
		EnglishChars: s.Stats.EnglishChars,
		DigitChars:   s.Stats.DigitChars,
		Lines:        s.Stats.Lines,
		Questions:    s.Stats.Questions,
		Options:      s.Stats.Options,
		SummaryText:  r.SummaryText(),
		ReportText:   r.String(),
	}
}

// Preview returns the summary lines followed by up to maxLines lines of page text.
func (r *Report) Preview(maxLines int) []string {
	var lines []string
	for _, line := range strings.Split(r.SummaryText(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}

	count := 0
	for _, page := range r.Pages {
		if !page.Recognized {
			continue
		}
		for _, line := range strings.Split(page.Text, "\n") {
			if count == maxLines {
				return append(lines, "...")
			}
			lines = append(lines, line)
			count++
		}
	}
	return lines
}
