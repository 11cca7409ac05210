package core

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
)

// newJobSite 首页用gzip压缩返回,验证显式Accept-Encoding时的解压路径
func newJobSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			body := `<html><body><a href="/a">a</a><a href="/missing">m</a><a href="/newsandnotes/x">n</a></body></html>`
			w.Header().Set("Content-Type", "text/html")
			if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				w.Header().Set("Content-Encoding", "gzip")
				zw := gzip.NewWriter(w)
				zw.Write([]byte(body))
				zw.Close()
				return
			}
			w.Write([]byte(body))
		case "/a":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>leaf</body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testJobConfig(t *testing.T, dir, seed string, maxPages int) *Config {
	t.Helper()
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Crawl.Seeds = []string{seed}
	cfg.Crawl.MaxPages = maxPages
	cfg.Crawl.DelayMin, cfg.Crawl.DelayMax = 0, 0
	cfg.Crawl.MaxRPS = 0
	cfg.Crawl.RequestTimeout = 2
	cfg.Crawl.RetryBackoffMillis = 10
	cfg.Exclusion.AllowedDomainSuffix = "127.0.0.1"
	cfg.Output.LinksFile = filepath.Join(dir, "data", "links.txt")
	cfg.Output.ErrorLog = filepath.Join(dir, "data", "errors.log")
	cfg.Output.CheckpointFile = filepath.Join(dir, "data", "checkpoint.json")
	cfg.Output.ReportsDir = filepath.Join(dir, "reports")
	return cfg
}

func runJob(t *testing.T, cfg *Config) *models.CrawlReport {
	t.Helper()
	hm, err := NewHeaderManager(filepath.Join(t.TempDir(), "headers.yaml"), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	job := NewCrawlJob(cfg, hm)
	job.SetOutput(&bytes.Buffer{})
	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("爬取任务失败: %v", err)
	}
	return report
}

func TestCrawlJobBudgetThenResume(t *testing.T) {
	srv := newJobSite(t)
	dir := t.TempDir()

	cfg := testJobConfig(t, dir, srv.URL+"/", 1)
	first := runJob(t, cfg)
	if first.Outcome != models.OutcomeBudget {
		t.Errorf("第一次 Outcome = %s, 期望 budget", first.Outcome)
	}
	links, _ := utils.ReadLines(cfg.Output.LinksFile)
	if len(links) != 1 || links[0] != srv.URL+"/" {
		t.Fatalf("第一次结果 = %v", links)
	}
	if !utils.FileExists(cfg.Output.CheckpointFile) {
		t.Fatalf("未保存检查点")
	}
	if !utils.FileExists(filepath.Join(cfg.Output.ReportsDir, "crawl_report.json")) {
		t.Errorf("未生成爬取报告")
	}

	cfg = testJobConfig(t, dir, srv.URL+"/", 100)
	cfg.Crawl.Resume = true
	second := runJob(t, cfg)

	if second.RunID != first.RunID {
		t.Errorf("续爬应沿用RunID: %s != %s", second.RunID, first.RunID)
	}
	if second.Outcome != models.OutcomeExhausted {
		t.Errorf("第二次 Outcome = %s, 期望 exhausted", second.Outcome)
	}
	links, _ = utils.ReadLines(cfg.Output.LinksFile)
	want := []string{srv.URL + "/", srv.URL + "/a"}
	if strings.Join(links, "\n") != strings.Join(want, "\n") {
		t.Errorf("续爬后结果 = %v, 期望 %v", links, want)
	}

	data, err := os.ReadFile(cfg.Output.ErrorLog)
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("错误日志行数 = %d: %q", len(lines), data)
	}
	pattern := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\] HTTP 404 for ` + regexp.QuoteMeta(srv.URL) + `/missing$`)
	if !pattern.MatchString(lines[0]) {
		t.Errorf("错误日志格式不正确: %q", lines[0])
	}
	if strings.Contains(string(data), "newsandnotes") {
		t.Errorf("被过滤的URL不应写入错误日志")
	}
}

func TestCrawlJobFreshRunTruncatesLinks(t *testing.T) {
	srv := newJobSite(t)
	dir := t.TempDir()

	cfg := testJobConfig(t, dir, srv.URL+"/", 100)
	runJob(t, cfg)
	runJob(t, cfg)

	links, _ := utils.ReadLines(cfg.Output.LinksFile)
	if len(links) != 2 {
		t.Errorf("非续爬应覆盖结果文件, 得到 %d 行", len(links))
	}
	// 错误日志始终追加
	data, _ := os.ReadFile(cfg.Output.ErrorLog)
	if n := strings.Count(string(data), "HTTP 404"); n != 2 {
		t.Errorf("错误日志应追加, 404行数 = %d", n)
	}
}

func TestCrawlJobInvalidConfig(t *testing.T) {
	cfg := testJobConfig(t, t.TempDir(), "not-a-url", 10)
	if _, err := NewCrawlJob(cfg, nil).Run(context.Background()); err == nil {
		t.Errorf("无效种子应返回错误")
	}
}

func TestCrawlJobConcurrentCheckpoints(t *testing.T) {
	dir := t.TempDir()
	cfg := testJobConfig(t, dir, "http://127.0.0.1/", 10)
	job := NewCrawlJob(cfg, nil)

	const goroutines, saves = 8, 20
	errs := make(chan error, goroutines*saves)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < saves; i++ {
				n := g*saves + i + 1
				cp := &models.Checkpoint{Results: make([]models.CrawlResult, n)}
				for k := range cp.Results {
					cp.Results[k] = models.CrawlResult{URL: fmt.Sprintf("http://127.0.0.1/p%d", k), Index: k + 1}
				}
				if err := job.SaveCheckpoint(cp); err != nil {
					errs <- err
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("并发保存检查点失败: %v", err)
	}

	cp, err := models.LoadCheckpointFromFile(cfg.Output.CheckpointFile)
	if err != nil {
		t.Fatalf("加载检查点失败: %v", err)
	}
	if len(cp.Results) != goroutines*saves {
		t.Errorf("最终检查点结果数 = %d, want %d (较旧的快照不应覆盖较新的)", len(cp.Results), goroutines*saves)
	}

	// 较少结果的快照在最大快照之后到达时被丢弃
	if err := job.SaveCheckpoint(&models.Checkpoint{Results: make([]models.CrawlResult, 1)}); err != nil {
		t.Fatal(err)
	}
	cp, _ = models.LoadCheckpointFromFile(cfg.Output.CheckpointFile)
	if len(cp.Results) != goroutines*saves {
		t.Errorf("过期快照覆盖了检查点: %d", len(cp.Results))
	}

	entries, err := os.ReadDir(filepath.Dir(cfg.Output.CheckpointFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("残留临时文件: %s", e.Name())
		}
	}
}
