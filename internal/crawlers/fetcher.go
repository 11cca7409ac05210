package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent 默认User-Agent
const DefaultUserAgent = "MDC-Student-Crawler/1.0 (for AI class project)"

// errNoResponse colly没有返回错误也没有触发OnResponse
var errNoResponse = errors.New("未收到响应")

// Page 一次成功的HTTP响应
type Page struct {
	URL         string // 请求的URL(去片段)
	FinalURL    string // 跟随重定向后的URL,相对链接以它为基准解析
	StatusCode  int
	ContentType string
	Body        []byte
	Attempts    int
}

// IsPDF 路径以.pdf结尾的页面是叶子节点,不挖掘链接
func (p *Page) IsPDF() bool {
	return models.IsPDFURL(p.URL)
}

// IsHTML 只有HTML响应(或未声明类型)才提取链接
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// PageFetcher 抓取单个URL
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// FetcherConfig 抓取器配置
type FetcherConfig struct {
	UserAgent     string
	Timeout       time.Duration
	RetryAttempts int           // 传输错误时的总尝试次数
	RetryBackoff  time.Duration // 固定退避,不做指数增长
	MaxBodySize   int           // 字节, 0表示使用colly默认值
}

// Fetcher 基于Colly的抓取器
// 非2xx响应不重试; 传输错误(网络、超时)在固定次数内重试
type Fetcher struct {
	base           *colly.Collector
	config         FetcherConfig
	headerProvider models.HeaderProvider
}

// NewFetcher 创建抓取器
func NewFetcher(config FetcherConfig, headerProvider models.HeaderProvider) *Fetcher {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}

	// 同步模式: Request返回时回调已执行完毕
	// ParseHTTPErrorResponse让非2xx响应也进入OnResponse,由我们自己分类
	// 不设置AllowedDomains,域名范围完全由ExclusionPolicy控制
	options := []colly.CollectorOption{
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	}
	if config.MaxBodySize > 0 {
		options = append(options, colly.MaxBodySize(config.MaxBodySize))
	}
	c := colly.NewCollector(options...)
	c.SetRequestTimeout(config.Timeout)

	utils.Debugf("抓取器: UA=%s, 超时=%v, 尝试次数=%d, 退避=%v",
		config.UserAgent, config.Timeout, config.RetryAttempts, config.RetryBackoff)

	return &Fetcher{base: c, config: config, headerProvider: headerProvider}
}

// Fetch 抓取URL
// 返回 *models.HTTPStatusError (非2xx) 或 *models.TransportError (重试耗尽);
// ctx取消时直接返回ctx的错误
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= f.config.RetryAttempts; attempt++ {
		page, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			page.Attempts = attempt
			if page.StatusCode < 200 || page.StatusCode >= 300 {
				return nil, &models.HTTPStatusError{URL: rawURL, StatusCode: page.StatusCode}
			}
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if attempt < f.config.RetryAttempts {
			utils.Debugf("请求失败,%v后重试 (%d/%d) [%s]: %v",
				f.config.RetryBackoff, attempt, f.config.RetryAttempts, rawURL, err)
			if err := sleepContext(ctx, f.config.RetryBackoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, &models.TransportError{URL: rawURL, Attempts: f.config.RetryAttempts, Cause: lastErr}
}

// fetchOnce 发起一次请求
// 每次克隆基础collector: 回调和ctx只属于这一次请求,HTTP客户端仍然共享
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	c := f.base.Clone()
	c.Context = ctx

	var page *Page
	c.OnResponse(func(r *colly.Response) {
		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", rawURL, encoding, err)
			} else {
				body = decompressed
			}
		}
		page = &Page{
			URL:         rawURL,
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        body,
		}
	})

	if err := c.Request(http.MethodGet, rawURL, nil, colly.NewContext(), f.requestHeaders()); err != nil {
		return nil, err
	}
	if page == nil {
		return nil, errNoResponse
	}
	return page, nil
}

// requestHeaders 合并自定义头部; 返回nil时colly使用默认UA
func (f *Fetcher) requestHeaders() http.Header {
	if f.headerProvider == nil {
		return nil
	}
	headers, err := f.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return nil
	}
	hdr := make(http.Header, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			hdr.Set(name, values[0])
		}
	}
	if hdr.Get("User-Agent") == "" {
		hdr.Set("User-Agent", f.config.UserAgent)
	}
	return hdr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// gzipMagic gzip数据的前两个字节
var gzipMagic = []byte{0x1f, 0x8b}

// decompressResponse 根据Content-Encoding头部解压响应体
// colly已经透明解压过gzip,这里按魔数判断避免重复解压
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip", "x-gzip":
		if !bytes.HasPrefix(body, gzipMagic) {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
