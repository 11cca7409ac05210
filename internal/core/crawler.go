package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/RecoveryAshes/mdcharvest/internal/crawlers"
	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
)

// CrawlJob 一次完整的爬取任务
// 负责输出文件、错误日志、检查点和报告; 爬取本身交给 crawlers.Crawler
// 实现 crawlers.Recorder 和 crawlers.CheckpointSaver
type CrawlJob struct {
	config         *Config
	headerProvider models.HeaderProvider
	fetcher        crawlers.PageFetcher
	out            io.Writer

	runID     string
	createdAt time.Time

	mu          sync.Mutex
	linksFile   *os.File
	linksWriter *bufio.Writer
	errorLog    *utils.ErrorLog

	// 检查点可能由多个worker同时触发,单独加锁;
	// 不能复用mu: RecordResult持有mu时爬取器正持有自己的锁
	saveMu    sync.Mutex
	lastSaved int
}

// NewCrawlJob 创建爬取任务
func NewCrawlJob(config *Config, headerProvider models.HeaderProvider) *CrawlJob {
	return &CrawlJob{
		config:         config,
		headerProvider: headerProvider,
		out:            os.Stdout,
	}
}

// SetFetcher 替换默认的Colly抓取器
func (j *CrawlJob) SetFetcher(fetcher crawlers.PageFetcher) {
	j.fetcher = fetcher
}

// SetOutput 设置统计表的输出位置
func (j *CrawlJob) SetOutput(w io.Writer) {
	j.out = w
}

// Run 执行爬取任务
// 执行流程:
//  1. 加载检查点 (--resume)
//  2. 打开结果文件和错误日志
//  3. 爬取,每个结果立即写入并刷新
//  4. 保存最终检查点
//  5. 生成报告
func (j *CrawlJob) Run(ctx context.Context) (*models.CrawlReport, error) {
	cfg := j.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Crawl.Seeds) == 0 {
		return nil, errors.New("至少需要一个种子URL")
	}

	startTime := time.Now()
	checkpoint := j.loadCheckpoint()
	if checkpoint != nil {
		j.runID = checkpoint.RunID
		j.createdAt = checkpoint.CreatedAt
	}
	if j.runID == "" {
		j.runID = models.NewRunID()
		j.createdAt = startTime
	}

	utils.Infof("🚀 开始爬取任务 [%s]", j.runID)
	utils.Infof("种子URL: %v", cfg.Crawl.Seeds)
	utils.Infof("结果文件: %s", cfg.Output.LinksFile)
	utils.Infof("错误日志: %s", cfg.Output.ErrorLog)

	if err := j.openOutputs(checkpoint); err != nil {
		return nil, err
	}
	defer j.closeOutputs()

	fetcher := j.fetcher
	if fetcher == nil {
		fetcher = crawlers.NewFetcher(crawlers.FetcherConfig{
			UserAgent:     cfg.Crawl.UserAgent,
			Timeout:       cfg.Crawl.Timeout(),
			RetryAttempts: cfg.Crawl.RetryAttempts,
			RetryBackoff:  cfg.Crawl.RetryBackoff(),
			MaxBodySize:   cfg.Crawl.MaxBodySize * 1024 * 1024,
		}, j.headerProvider)
	}

	crawler, err := crawlers.NewCrawler(cfg.Crawl, cfg.Exclusion, fetcher, j)
	if err != nil {
		return nil, err
	}
	if checkpoint != nil {
		crawler.Restore(checkpoint)
	}

	run, crawlErr := crawler.Crawl(ctx, cfg.Crawl.Seeds, cfg.Crawl.MaxPages)
	if run == nil {
		return nil, crawlErr
	}

	if cfg.Output.CheckpointFile != "" {
		if err := j.SaveCheckpoint(crawler.Checkpoint()); err != nil {
			utils.Warnf("保存检查点失败: %v", err)
		}
	}

	report := &models.CrawlReport{
		RunID:      j.runID,
		Seeds:      cfg.Crawl.Seeds,
		Outcome:    run.Outcome,
		StartTime:  startTime,
		EndTime:    time.Now(),
		Stats:      run.Stats,
		FailedURLs: run.Failed,
		LinksPath:  cfg.Output.LinksFile,
		ErrorLog:   cfg.Output.ErrorLog,
		Config:     cfg.Crawl,
		Exclusion:  cfg.Exclusion,
	}
	if report.FailedURLs == nil {
		report.FailedURLs = []models.FailedURL{}
	}

	switch run.Outcome {
	case models.OutcomeBudget:
		utils.Infof("⏹️  %s (max_pages=%d)", run.Outcome.Describe(), cfg.Crawl.MaxPages)
	case models.OutcomeCancelled:
		utils.Warnf("%s, 可使用 --resume 继续", run.Outcome.Describe())
	default:
		utils.Infof("🏁 %s", run.Outcome.Describe())
	}
	utils.Infof("💾 已保存 %d 个URL到 %s", len(run.Results), cfg.Output.LinksFile)

	if cfg.Output.ReportsDir != "" {
		if err := utils.NewReporter(cfg.Output.ReportsDir).GenerateCrawlReport(report); err != nil {
			utils.Warnf("生成报告失败: %v", err)
		}
	}
	utils.RenderCrawlTable(j.out, report)

	return report, crawlErr
}

// loadCheckpoint 仅在 --resume 且检查点存在时返回
func (j *CrawlJob) loadCheckpoint() *models.Checkpoint {
	cfg := j.config
	if !cfg.Crawl.Resume || cfg.Output.CheckpointFile == "" {
		return nil
	}
	cp, err := models.LoadCheckpointFromFile(cfg.Output.CheckpointFile)
	if err != nil {
		if os.IsNotExist(err) {
			utils.Infof("未找到检查点,从头开始: %s", cfg.Output.CheckpointFile)
		} else {
			utils.Warnf("加载检查点失败,从头开始: %v", err)
		}
		return nil
	}
	return cp
}

// openOutputs 打开结果文件和错误日志
// 续爬时先按检查点重写已有结果,再在其后追加,
// 这样检查点之后、中断之前写入的行不会重复出现
func (j *CrawlJob) openOutputs(cp *models.Checkpoint) error {
	cfg := j.config
	if err := utils.EnsureParentDir(cfg.Output.LinksFile); err != nil {
		return err
	}
	f, err := os.OpenFile(cfg.Output.LinksFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("创建结果文件失败 [%s]: %w", cfg.Output.LinksFile, err)
	}
	w := bufio.NewWriter(f)
	if cp != nil {
		for _, r := range cp.Results {
			w.WriteString(r.URL + "\n")
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("写入结果文件失败: %w", err)
		}
	}

	errorLog, err := utils.OpenErrorLog(cfg.Output.ErrorLog)
	if err != nil {
		f.Close()
		return err
	}

	j.mu.Lock()
	j.linksFile, j.linksWriter, j.errorLog = f, w, errorLog
	j.mu.Unlock()
	return nil
}

func (j *CrawlJob) closeOutputs() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.linksWriter != nil {
		j.linksWriter.Flush()
	}
	if j.linksFile != nil {
		j.linksFile.Close()
	}
	if j.errorLog != nil {
		j.errorLog.Close()
	}
	j.linksFile, j.linksWriter, j.errorLog = nil, nil, nil
}

// RecordResult 追加一行结果并立即刷新
func (j *CrawlJob) RecordResult(result models.CrawlResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.linksWriter.WriteString(result.URL + "\n"); err != nil {
		return err
	}
	return j.linksWriter.Flush()
}

// RecordFailure 每次失败写一行错误日志
func (j *CrawlJob) RecordFailure(_ models.FailedURL, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.errorLog.Log(err.Error()); err != nil {
		utils.Errorf("写入错误日志失败: %v", err)
	}
}

// SaveCheckpoint 保存检查点
// 保存串行执行; 结果数少于上次已写入的快照视为过期,直接丢弃
func (j *CrawlJob) SaveCheckpoint(cp *models.Checkpoint) error {
	j.saveMu.Lock()
	defer j.saveMu.Unlock()

	if len(cp.Results) < j.lastSaved {
		utils.Debugf("丢弃过期检查点: 结果 %d < %d", len(cp.Results), j.lastSaved)
		return nil
	}
	cp.RunID = j.runID
	cp.CreatedAt = j.createdAt
	if err := cp.SaveToFile(j.config.Output.CheckpointFile); err != nil {
		return err
	}
	j.lastSaved = len(cp.Results)
	utils.Debugf("检查点已保存: 结果 %d, 待处理 %d", len(cp.Results), len(cp.Pending))
	return nil
}
