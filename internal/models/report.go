package models

import (
	"encoding/json"
	"time"
)

// CrawlReport 爬取报告
type CrawlReport struct {
	RunID string   `json:"run_id"`
	Seeds []string `json:"seeds"`

	Outcome CrawlOutcome `json:"outcome"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Stats      CrawlStats      `json:"stats"`
	FailedURLs []FailedURL     `json:"failed_urls"`
	LinksPath  string          `json:"links_path"`
	ErrorLog   string          `json:"error_log"`
	Config     CrawlConfig     `json:"config"`
	Exclusion  ExclusionConfig `json:"exclusion"`
}

// CategoryCount 单个分类的计数
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategorizeSummary 一个输入流的分类摘要
type CategorizeSummary struct {
	Stream   string          `json:"stream"` // html / pdf
	Input    string          `json:"input"`
	Total    int             `json:"total"`
	Targets  int             `json:"targets"`
	Errors   int             `json:"errors"`
	Counts   []CategoryCount `json:"counts"`
	OutCSV   string          `json:"out_csv"`
	OutTXT   string          `json:"out_txt,omitempty"`
	Duration float64         `json:"duration"`
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
