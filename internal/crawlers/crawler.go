package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// progressInterval 进度日志间隔
const progressInterval = 30 * time.Second

// Recorder 接收爬取结果和失败记录
// RecordResult 在爬取器锁内按抓取顺序调用
type Recorder interface {
	RecordResult(result models.CrawlResult) error
	RecordFailure(failed models.FailedURL, err error)
}

// CheckpointSaver Recorder可选实现,按 checkpoint_interval 保存检查点
type CheckpointSaver interface {
	SaveCheckpoint(cp *models.Checkpoint) error
}

// CrawlRun 一次爬取的结果
type CrawlRun struct {
	Results []models.CrawlResult
	Failed  []models.FailedURL
	Outcome models.CrawlOutcome
	Stats   models.CrawlStats
}

// URLs 按抓取顺序返回成功抓取的URL
func (r *CrawlRun) URLs() []string {
	urls := make([]string, len(r.Results))
	for i, res := range r.Results {
		urls[i] = res.URL
	}
	return urls
}

// Crawler 广度优先的站内爬取器
// 职责: 维护Frontier,出队时执行排除策略,抓取页面,挖掘链接,
// 在队列耗尽、达到页面预算或ctx取消时停止
type Crawler struct {
	config   models.CrawlConfig
	policy   *ExclusionPolicy
	fetcher  PageFetcher
	recorder Recorder
	frontier *Frontier
	limiter  *rate.Limiter
	monitor  *ResourceMonitor

	mu        sync.Mutex
	results   []models.CrawlResult
	failed    []models.FailedURL
	stats     models.CrawlStats
	budgetHit bool

	start       time.Time
	elapsedBase time.Duration // 断点续爬前已用时间
}

// NewCrawler 创建爬取器
func NewCrawler(config models.CrawlConfig, exclusion models.ExclusionConfig, fetcher PageFetcher, recorder Recorder) (*Crawler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("爬取配置无效: %w", err)
	}
	policy, err := NewExclusionPolicy(exclusion)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New("fetcher不能为空")
	}
	if config.DelayMax == 0 {
		utils.Warnf("礼貌延迟为0,仅适用于本地测试")
	}

	c := &Crawler{
		config:   config,
		policy:   policy,
		fetcher:  fetcher,
		recorder: recorder,
		frontier: NewFrontier(),
		limiter:  NewSharedLimiter(config.MaxRPS),
	}
	if config.Workers > 1 {
		c.monitor = NewResourceMonitor(ResourceMonitorConfig{
			SafetyThreshold:  int64(config.SafetyThreshold) * 1024 * 1024,
			CPULoadThreshold: config.CPULoadThreshold,
		})
	}
	return c, nil
}

// Restore 从检查点恢复已访问集合、待处理队列和已有结果
func (c *Crawler) Restore(cp *models.Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	visited := append([]string(nil), cp.Visited...)
	for _, r := range cp.Results {
		visited = append(visited, r.URL)
	}
	c.frontier.Restore(visited, cp.Pending)
	c.results = append([]models.CrawlResult(nil), cp.Results...)
	c.stats = cp.Stats
	c.elapsedBase = time.Duration(cp.Stats.Duration * float64(time.Second))

	utils.Infof("♻️  从检查点恢复: 已抓取 %d, 已访问 %d, 待处理 %d",
		len(cp.Results), len(cp.Visited), len(cp.Pending))
}

// Checkpoint 导出当前状态
func (c *Crawler) Checkpoint() *models.Checkpoint {
	visited, pending := c.frontier.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Duration = c.elapsed().Seconds()
	return &models.Checkpoint{
		Visited:   visited,
		Pending:   pending,
		Results:   append([]models.CrawlResult(nil), c.results...),
		Stats:     stats,
		UpdatedAt: time.Now(),
	}
}

// Crawl 从种子URL开始爬取,maxPages 限制成功抓取的页面数
func (c *Crawler) Crawl(ctx context.Context, seeds []string, maxPages int) (*CrawlRun, error) {
	if maxPages < 1 {
		return nil, fmt.Errorf("maxPages必须为正整数: %d", maxPages)
	}
	for _, seed := range seeds {
		if err := models.ValidateURL(seed); err != nil {
			return nil, fmt.Errorf("无效的种子URL [%s]: %w", seed, err)
		}
	}

	c.start = time.Now()
	for _, seed := range seeds {
		c.frontier.Push(seed)
	}

	c.mu.Lock()
	if len(c.results) >= maxPages {
		c.budgetHit = true
		c.frontier.Close()
	}
	c.mu.Unlock()

	workers := c.config.Workers
	if c.monitor != nil {
		workers = c.monitor.RecommendWorkers(workers)
	}

	utils.Infof("🕷️  开始爬取: 种子 %d 个, 页面上限 %d, worker %d 个, 礼貌延迟 %.2f-%.2f秒",
		len(seeds), maxPages, workers, c.config.DelayMin, c.config.DelayMax)

	progressDone := make(chan struct{})
	go c.reportProgress(progressDone)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		politeness := NewPoliteness(
			time.Duration(c.config.DelayMin*float64(time.Second)),
			time.Duration(c.config.DelayMax*float64(time.Second)),
			c.limiter,
			time.Now().UnixNano()+int64(i),
		)
		g.Go(func() error {
			return c.worker(gctx, politeness, maxPages)
		})
	}
	err := g.Wait()
	close(progressDone)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Duration = c.elapsed().Seconds()
	run := &CrawlRun{
		Results: append([]models.CrawlResult(nil), c.results...),
		Failed:  append([]models.FailedURL(nil), c.failed...),
		Stats:   c.stats,
	}
	switch {
	case c.budgetHit:
		run.Outcome = models.OutcomeBudget
	case ctx.Err() != nil:
		run.Outcome = models.OutcomeCancelled
	default:
		run.Outcome = models.OutcomeExhausted
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return run, err
	}
	return run, nil
}

func (c *Crawler) worker(ctx context.Context, politeness *Politeness, maxPages int) error {
	for {
		u, ok := c.frontier.Pop(ctx)
		if !ok {
			return nil
		}
		err := c.process(ctx, u, politeness, maxPages)
		c.frontier.Done(u)
		if err != nil {
			return err
		}
	}
}

// process 处理一个出队的URL
// 过滤顺序: 跳过规则 -> 已访问(测试并标记) -> 协议 -> 域名 -> 禁止路径 -> 扩展名
func (c *Crawler) process(ctx context.Context, u string, politeness *Politeness, maxPages int) error {
	if c.policy.MatchesSkipPattern(u) {
		c.countFiltered(u, VerdictSkipPattern)
		return nil
	}
	if !c.frontier.MarkVisited(u) {
		c.mu.Lock()
		c.stats.Duplicates++
		c.mu.Unlock()
		return nil
	}
	if v := c.policy.Evaluate(u); v != VerdictEligible {
		c.countFiltered(u, v)
		return nil
	}

	if err := politeness.Acquire(ctx); err != nil {
		c.frontier.Requeue(u)
		return nil
	}

	page, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			// 运行被取消,不算抓取失败
			c.frontier.Requeue(u)
			return nil
		}
		c.recordFailure(u, err)
		_ = politeness.Wait(ctx)
		return nil
	}

	index, err := c.appendResult(u, maxPages)
	if err != nil {
		return err
	}
	if index == 0 {
		// 其他worker已用完预算,本页不计入结果
		c.frontier.Requeue(u)
		return nil
	}

	if page.IsPDF() {
		c.mu.Lock()
		c.stats.PDFs++
		c.mu.Unlock()
	} else if page.IsHTML() {
		c.mineLinks(page)
	}

	c.maybeCheckpoint(index)

	if !c.stopped() {
		_ = politeness.Wait(ctx)
	}
	return nil
}

// appendResult 追加结果并返回序号; 预算已满时返回0
func (c *Crawler) appendResult(u string, maxPages int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.results) >= maxPages {
		return 0, nil
	}
	result := models.CrawlResult{
		URL:     u,
		Index:   len(c.results) + 1,
		Elapsed: c.elapsed(),
	}
	if c.recorder != nil {
		if err := c.recorder.RecordResult(result); err != nil {
			return 0, fmt.Errorf("写入爬取结果失败: %w", err)
		}
	}
	c.results = append(c.results, result)
	c.stats.Fetched++

	utils.Infof("✅ [%d] %s (%.1fs, 队列 %d)", result.Index, u, result.Elapsed.Seconds(), c.frontier.Len())

	if len(c.results) >= maxPages {
		c.budgetHit = true
		c.frontier.Close()
		utils.Infof("⏹️  达到页面上限 %d,停止爬取", maxPages)
	}
	return result.Index, nil
}

// mineLinks 提取链接并追加到队尾,解析失败只跳过本页的链接发现
func (c *Crawler) mineLinks(page *Page) {
	links, err := ExtractLinks(page)
	if err != nil {
		utils.Warnf("链接提取失败,页面已保留: %v", err)
		c.mu.Lock()
		c.stats.ParseErrors++
		c.mu.Unlock()
		return
	}

	added := 0
	for _, link := range links {
		if c.frontier.Push(link) {
			added++
		}
	}
	c.mu.Lock()
	c.stats.Discovered += added
	c.mu.Unlock()
	utils.Debugf("从 %s 发现 %d 个链接,新入队 %d 个", page.URL, len(links), added)
}

func (c *Crawler) recordFailure(u string, err error) {
	failed := models.FailedURL{
		URL:      u,
		ErrorMsg: err.Error(),
		Attempts: 1,
		FailedAt: time.Now(),
	}
	var statusErr *models.HTTPStatusError
	var transportErr *models.TransportError
	switch {
	case errors.As(err, &statusErr):
		failed.ErrorType = "http_status"
	case errors.As(err, &transportErr):
		failed.ErrorType = "transport"
		failed.Attempts = transportErr.Attempts
	default:
		failed.ErrorType = "unknown"
	}

	c.mu.Lock()
	c.failed = append(c.failed, failed)
	c.stats.Failed++
	c.mu.Unlock()

	utils.Warnf("❌ 抓取失败: %v", err)
	if c.recorder != nil {
		c.recorder.RecordFailure(failed, err)
	}
}

// countFiltered 策略过滤不是错误,只记调试日志
func (c *Crawler) countFiltered(u string, v Verdict) {
	c.mu.Lock()
	c.stats.Filtered++
	c.mu.Unlock()
	utils.Debugf("过滤 [%s]: %s", v, u)
}

func (c *Crawler) maybeCheckpoint(index int) {
	saver, ok := c.recorder.(CheckpointSaver)
	if !ok || c.config.CheckpointInterval <= 0 || index%c.config.CheckpointInterval != 0 {
		return
	}
	if err := saver.SaveCheckpoint(c.Checkpoint()); err != nil {
		utils.Warnf("保存检查点失败: %v", err)
	}
}

func (c *Crawler) stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budgetHit
}

// elapsed 调用方须持有 c.mu 或处于单线程阶段
func (c *Crawler) elapsed() time.Duration {
	if c.start.IsZero() {
		return c.elapsedBase
	}
	return c.elapsedBase + time.Since(c.start)
}

func (c *Crawler) reportProgress(done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			fetched, failed, filtered := c.stats.Fetched, c.stats.Failed, c.stats.Filtered
			c.mu.Unlock()
			utils.Infof("进度: 已抓取 %d, 失败 %d, 过滤 %d, 队列 %d",
				fetched, failed, filtered, c.frontier.Len())
		}
	}
}
