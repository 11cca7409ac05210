package models

import (
	"fmt"
	"strings"
	"time"
)

// CrawlOutcome 爬取结束原因
type CrawlOutcome string

const (
	OutcomeExhausted CrawlOutcome = "exhausted" // 待爬队列耗尽(站点真正爬完)
	OutcomeBudget    CrawlOutcome = "budget"    // 达到max_pages上限
	OutcomeCancelled CrawlOutcome = "cancelled" // 操作员中断
)

// Describe 返回面向用户的结束原因说明
func (o CrawlOutcome) Describe() string {
	switch o {
	case OutcomeExhausted:
		return "已到达站点真正的末尾(没有更多可爬取的页面)"
	case OutcomeBudget:
		return "达到max_pages上限后停止"
	case OutcomeCancelled:
		return "收到中断信号后停止"
	default:
		return string(o)
	}
}

// SkipRule 临时跳过规则
// Contains中的所有子串同时出现在URL中时命中
type SkipRule struct {
	Contains []string `mapstructure:"contains" json:"contains"`
}

// Matches 判断URL是否命中该规则
func (r SkipRule) Matches(rawURL string) bool {
	if len(r.Contains) == 0 {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, part := range r.Contains {
		if !strings.Contains(lower, strings.ToLower(part)) {
			return false
		}
	}
	return true
}

// ExclusionConfig 排除策略配置(以数据形式提供,而非代码)
type ExclusionConfig struct {
	AllowedDomainSuffix    string     `mapstructure:"allowed_domain_suffix" json:"allowed_domain_suffix"`
	DisallowedPathPrefixes []string   `mapstructure:"disallowed_path_prefixes" json:"disallowed_path_prefixes"`
	SkipExtensions         []string   `mapstructure:"skip_extensions" json:"skip_extensions"`
	SkipPatterns           []SkipRule `mapstructure:"skip_patterns" json:"skip_patterns"`
}

// Validate 验证排除配置
func (c *ExclusionConfig) Validate() error {
	if c.AllowedDomainSuffix == "" {
		return fmt.Errorf("allowed_domain_suffix不能为空")
	}
	for _, ext := range c.SkipExtensions {
		if ext == "" || ext[0] != '.' {
			return fmt.Errorf("跳过的扩展名必须以'.'开头: %q", ext)
		}
	}
	return nil
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	Seeds              []string `mapstructure:"seeds" json:"seeds"`                             // 种子URL
	MaxPages           int      `mapstructure:"max_pages" json:"max_pages"`                     // 成功抓取页面上限 (默认:20000)
	Workers            int      `mapstructure:"workers" json:"workers"`                         // 并发worker数 (默认:1,即顺序爬取)
	RequestTimeout     int      `mapstructure:"request_timeout" json:"request_timeout"`         // 单次请求超时(秒) (默认:20)
	RetryAttempts      int      `mapstructure:"retry_attempts" json:"retry_attempts"`           // 传输错误时的总尝试次数 (默认:2)
	RetryBackoffMillis int      `mapstructure:"retry_backoff_ms" json:"retry_backoff_ms"`       // 重试间固定退避(毫秒) (默认:600)
	DelayMin           float64  `mapstructure:"delay_min" json:"delay_min"`                     // 礼貌延迟下限(秒) (默认:0.5)
	DelayMax           float64  `mapstructure:"delay_max" json:"delay_max"`                     // 礼貌延迟上限(秒) (默认:1.0)
	MaxRPS             float64  `mapstructure:"max_rps" json:"max_rps"`                         // 所有worker合计的每秒请求上限 (默认:1.0)
	MaxBodySize        int      `mapstructure:"max_body_size" json:"max_body_size"`             // 响应体大小上限(MB)
	UserAgent          string   `mapstructure:"user_agent" json:"user_agent"`                   // 自定义User-Agent
	CheckpointInterval int      `mapstructure:"checkpoint_interval" json:"checkpoint_interval"` // 每N个结果保存一次检查点
	Resume             bool     `mapstructure:"resume" json:"resume"`                           // 是否从检查点恢复

	// 资源限制(仅workers>1时生效)
	SafetyThreshold  int `mapstructure:"safety_threshold" json:"safety_threshold"`     // 可用内存阈值(MB)
	CPULoadThreshold int `mapstructure:"cpu_load_threshold" json:"cpu_load_threshold"` // CPU负载阈值(%)
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxPages < 1 {
		return fmt.Errorf("max_pages必须为正整数")
	}
	if c.Workers < 1 || c.Workers > 32 {
		return fmt.Errorf("worker数必须在1-32之间")
	}
	if c.RequestTimeout < 1 || c.RequestTimeout > 300 {
		return fmt.Errorf("请求超时必须在1-300秒之间")
	}
	if c.RetryAttempts < 1 || c.RetryAttempts > 10 {
		return fmt.Errorf("重试次数必须在1-10之间")
	}
	if c.RetryBackoffMillis < 0 {
		return fmt.Errorf("重试退避不能为负数")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("礼貌延迟范围无效: [%.2f, %.2f]", c.DelayMin, c.DelayMax)
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("max_rps不能为负数")
	}
	return nil
}

// Timeout 返回请求超时时长
func (c *CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RetryBackoff 返回重试退避时长
func (c *CrawlConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

// CrawlResult 一条成功抓取记录,追加后不可变
type CrawlResult struct {
	URL     string        `json:"url"`     // 去片段后的URL
	Index   int           `json:"index"`   // 抓取顺序(从1开始)
	Elapsed time.Duration `json:"elapsed"` // 自爬取开始以来的耗时
}

// FailedURL 抓取失败记录
type FailedURL struct {
	URL       string    `json:"url"`
	ErrorType string    `json:"error_type"` // transport, http_status
	ErrorMsg  string    `json:"error_msg"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}

// CrawlStats 爬取统计
type CrawlStats struct {
	Fetched     int     `json:"fetched"`      // 成功抓取数
	Failed      int     `json:"failed"`       // 抓取失败数
	Filtered    int     `json:"filtered"`     // 被排除策略过滤的数量
	Duplicates  int     `json:"duplicates"`   // 出队时发现已访问的数量
	PDFs        int     `json:"pdfs"`         // 成功抓取的PDF数
	ParseErrors int     `json:"parse_errors"` // HTML解析失败数
	Discovered  int     `json:"discovered"`   // 入队的链接总数
	Duration    float64 `json:"duration"`     // 总耗时(秒)
}
