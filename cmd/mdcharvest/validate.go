package main

import (
	"fmt"
	"net/url"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
)

// ValidateCrawlFlags 验证 crawl 子命令的数值参数
// 0 表示沿用配置文件; 延迟参数用负数表示沿用配置文件
func ValidateCrawlFlags(maxPages, workers int, delayMin, delayMax float64, timeout int) error {
	if maxPages < 0 {
		return fmt.Errorf("页面上限不能为负数,当前值: %d", maxPages)
	}

	if workers < 0 || workers > 64 {
		return fmt.Errorf("并发数必须在1-64之间,当前值: %d", workers)
	}

	if timeout < 0 || timeout > 300 {
		return fmt.Errorf("超时必须在1-300秒之间,当前值: %d", timeout)
	}

	if delayMin >= 0 && delayMax >= 0 && delayMin > delayMax {
		return fmt.Errorf("延迟下限(%.2f)不能大于上限(%.2f)", delayMin, delayMax)
	}

	return nil
}

// NormalizeSeeds 规范化并校验种子URL
func NormalizeSeeds(seeds []string) ([]string, error) {
	normalized := make([]string, 0, len(seeds))
	for _, s := range seeds {
		u, err := NormalizeURL(s)
		if err != nil {
			return nil, fmt.Errorf("无效的种子URL %q: %w", s, err)
		}
		if err := models.ValidateURL(u); err != nil {
			return nil, fmt.Errorf("无效的种子URL %q: %w", s, err)
		}
		normalized = append(normalized, u)
	}
	return normalized, nil
}

// NormalizeURL 规范化URL
func NormalizeURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	// 如果没有协议,默认使用https
	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
