package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/RecoveryAshes/mdcharvest/internal/categorizer"
	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
)

// CategorizedURL 单个URL的分类结果
type CategorizedURL struct {
	URL      string
	Decision categorizer.Decision
	Target   bool
}

// StreamOptions 一个输入流的输入输出路径
type StreamOptions struct {
	Name      string // html / pdf
	Input     string
	OutCSV    string
	OutTXT    string // 为空时不输出目标列表
	PDFStream bool
}

// BatchCategorizer 批量分类器
type BatchCategorizer struct {
	categorizer  *categorizer.Categorizer
	showProgress bool
	out          io.Writer
}

// NewBatchCategorizer 创建批量分类器
func NewBatchCategorizer(c *categorizer.Categorizer, showProgress bool) *BatchCategorizer {
	return &BatchCategorizer{categorizer: c, showProgress: showProgress, out: os.Stdout}
}

// SetOutput 设置分类计数表的输出位置
func (b *BatchCategorizer) SetOutput(w io.Writer) {
	b.out = w
}

// CategorizeBatch 逐个分类,单个URL出错不影响其他URL
func (b *BatchCategorizer) CategorizeBatch(urls []string, pdfStream bool) []CategorizedURL {
	bar := utils.NewProgressBar(len(urls), "🏷️  分类中")
	if !b.showProgress {
		bar = nil
	}

	results := make([]CategorizedURL, 0, len(urls))
	for _, u := range urls {
		d := b.categorizer.Categorize(u, models.IsPDFURL(u))
		results = append(results, CategorizedURL{
			URL:      u,
			Decision: d,
			Target:   b.categorizer.IsTarget(u, d, pdfStream),
		})
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}
	return results
}

// RunStream 分类一个输入流并写出CSV和目标列表
// 输入文件不存在时跳过,返回 nil, nil
func (b *BatchCategorizer) RunStream(opts StreamOptions) (*models.CategorizeSummary, error) {
	if !utils.FileExists(opts.Input) {
		utils.Infof("[skip] 输入文件不存在: %s", opts.Input)
		return nil, nil
	}

	start := time.Now()
	lines, err := utils.ReadLines(opts.Input)
	if err != nil {
		return nil, err
	}
	results := b.CategorizeBatch(lines, opts.PDFStream)

	if err := writeCategoryCSV(opts.OutCSV, results); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	summary := &models.CategorizeSummary{
		Stream: opts.Name,
		Input:  opts.Input,
		Total:  len(results),
		OutCSV: opts.OutCSV,
		OutTXT: opts.OutTXT,
	}
	var targets []string
	for _, r := range results {
		counts[r.Decision.Category]++
		if r.Target {
			targets = append(targets, r.URL)
		}
		if r.Decision.IsError() {
			summary.Errors++
		}
	}
	summary.Targets = len(targets)
	summary.Counts = utils.SortedCounts(counts)

	if opts.OutTXT != "" {
		if err := utils.WriteLines(opts.OutTXT, targets); err != nil {
			return nil, err
		}
	}
	summary.Duration = time.Since(start).Seconds()

	if summary.Errors > 0 {
		utils.Warnf("%s: %d 个URL分类出错,已降级为 %s", opts.Name, summary.Errors, categorizer.UncategorizedCategory)
	}
	utils.Infof("✅ %s: %d 个URL, 目标 %d 个 -> %s", opts.Name, summary.Total, summary.Targets, opts.OutCSV)
	return summary, nil
}

// RunCategorize 依次处理HTML流和PDF流,输出计数表和摘要报告
func (b *BatchCategorizer) RunCategorize(cfg CategorizeConfig, reportsDir string) ([]models.CategorizeSummary, error) {
	streams := []StreamOptions{
		{Name: "html", Input: cfg.Input, OutCSV: cfg.OutCSV, OutTXT: cfg.OutTXT},
		{Name: "pdf", Input: cfg.PDFInput, OutCSV: cfg.PDFOutCSV, OutTXT: cfg.PDFOutTXT, PDFStream: true},
	}

	var summaries []models.CategorizeSummary
	for _, s := range streams {
		if s.Input == "" {
			utils.Infof("[info] 未提供 %s 输入", s.Name)
			continue
		}
		summary, err := b.RunStream(s)
		if err != nil {
			return summaries, fmt.Errorf("分类 %s 流失败: %w", s.Name, err)
		}
		if summary == nil || summary.Total == 0 {
			continue
		}
		summaries = append(summaries, *summary)
		utils.RenderCategoryTable(b.out, fmt.Sprintf("📊 %s 分类计数", s.Name), summary.Counts)
	}

	if reportsDir != "" && len(summaries) > 0 {
		if err := utils.NewReporter(reportsDir).GenerateCategorizeReport(summaries); err != nil {
			utils.Warnf("生成分类报告失败: %v", err)
		}
	}
	return summaries, nil
}

// writeCategoryCSV 写出 url,category,confidence,reason
func writeCategoryCSV(path string, results []CategorizedURL) error {
	if err := utils.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建CSV失败 [%s]: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"url", "category", "confidence", "reason"})
	for _, r := range results {
		w.Write([]string{r.URL, r.Decision.Category, r.Decision.Confidence(), r.Decision.Reason})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("写入CSV失败 [%s]: %w", path, err)
	}
	return f.Close()
}
