package models

import "fmt"

// TransportError 网络/超时错误
// 在固定重试预算内重试,耗尽后记录到错误日志并标记为失败
type TransportError struct {
	URL      string
	Attempts int
	Cause    error
}

// Error 实现error接口
func (e *TransportError) Error() string {
	return fmt.Sprintf("REQUEST ERROR for %s (尝试%d次): %v", e.URL, e.Attempts, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPStatusError 非2xx响应,不重试
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error 实现error接口
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ParseError HTML解析失败
// 页面仍作为爬取结果保留,只跳过该页的链接发现
type ParseError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *ParseError) Error() string {
	return fmt.Sprintf("解析HTML失败 [%s]: %v", e.URL, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RuleEvaluationError 分类规则匹配时发生的错误
type RuleEvaluationError struct {
	URL   string
	Cause error
}

// Error 实现error接口
func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("error:%v", e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *RuleEvaluationError) Unwrap() error {
	return e.Cause
}

// ConfigError 配置文件错误
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
