package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrorLogTimeFormat 错误日志时间戳格式(ISO-8601,精确到秒)
const ErrorLogTimeFormat = "2006-01-02T15:04:05"

// ErrorLog 只追加的抓取错误日志
// 每次失败一行: [2025-11-17T14:05:23] HTTP 404 for https://...
// 以追加模式打开,已有内容不会被覆盖
type ErrorLog struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// OpenErrorLog 以追加模式打开错误日志
func OpenErrorLog(path string) (*ErrorLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建错误日志目录失败: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开错误日志失败 [%s]: %w", path, err)
	}
	return &ErrorLog{file: f, now: time.Now}, nil
}

// Log 追加一行错误记录
func (l *ErrorLog) Log(message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s\n", l.now().Format(ErrorLogTimeFormat), message)
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("写入错误日志失败: %w", err)
	}
	return nil
}

// Close 关闭日志文件
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
