package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
)

// Reporter 报告生成器
type Reporter struct {
	reportsDir string
}

// NewReporter 创建报告生成器
func NewReporter(reportsDir string) *Reporter {
	return &Reporter{reportsDir: reportsDir}
}

// GenerateCrawlReport 保存爬取报告和失败URL列表
func (r *Reporter) GenerateCrawlReport(report *models.CrawlReport) error {
	if err := os.MkdirAll(r.reportsDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}

	if err := r.saveJSONReport("crawl_report.json", report); err != nil {
		return err
	}
	if err := r.saveJSONReport("failed_urls.json", report.FailedURLs); err != nil {
		return err
	}

	Infof("✅ 报告已生成: %s", r.reportsDir)
	return nil
}

// GenerateCategorizeReport 保存分类摘要
func (r *Reporter) GenerateCategorizeReport(summaries []models.CategorizeSummary) error {
	if err := os.MkdirAll(r.reportsDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %w", err)
	}
	return r.saveJSONReport("categorize_summary.json", summaries)
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(filename string, data interface{}) error {
	path := filepath.Join(r.reportsDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// SortedCounts 按数量降序(同数量按名称)排列分类计数
func SortedCounts(counts map[string]int) []models.CategoryCount {
	result := make([]models.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		result = append(result, models.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// RenderCategoryTable 输出分类计数表
func RenderCategoryTable(w io.Writer, title string, counts []models.CategoryCount) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"分类", "URL数"})
	total := 0
	for _, c := range counts {
		t.AppendRow(table.Row{c.Category, c.Count})
		total += c.Count
	}
	t.AppendFooter(table.Row{"合计", total})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// RenderCrawlTable 输出爬取统计表
func RenderCrawlTable(w io.Writer, report *models.CrawlReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("📊 爬取统计")
	t.AppendRows([]table.Row{
		{"✅ 成功抓取", report.Stats.Fetched},
		{"📄 其中PDF", report.Stats.PDFs},
		{"❌ 抓取失败", report.Stats.Failed},
		{"🚫 策略过滤", report.Stats.Filtered},
		{"🔁 重复出队", report.Stats.Duplicates},
		{"🔗 发现链接", report.Stats.Discovered},
		{"⚠️  解析失败", report.Stats.ParseErrors},
		{"⏱️  总耗时(秒)", fmt.Sprintf("%.2f", report.Stats.Duration)},
		{"结束原因", report.Outcome.Describe()},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
