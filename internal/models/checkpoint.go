package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint 爬取检查点,用于 --resume 断点续爬
type Checkpoint struct {
	RunID string `json:"run_id"`

	// 进度信息
	Visited []string      `json:"visited"` // 已处理(含被过滤、失败)的URL
	Pending []string      `json:"pending"` // 待处理队列,保持FIFO顺序
	Results []CrawlResult `json:"results"` // 已成功抓取的结果

	Stats CrawlStats `json:"stats"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveToFile 原子写入: 先写临时文件再重命名,中断时不会留下半截JSON
func (c *Checkpoint) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建检查点目录失败: %w", err)
	}
	// 每次保存使用独立的临时文件,并发保存不会互相删除对方的临时文件
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时检查点失败: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("写入检查点失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("写入检查点失败: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("设置检查点权限失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("重命名检查点失败: %w", err)
	}
	return nil
}

// LoadCheckpointFromFile 从文件加载
func LoadCheckpointFromFile(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("解析检查点失败 [%s]: %w", path, err)
	}
	return &cp, nil
}
