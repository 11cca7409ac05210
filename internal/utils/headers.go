package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
)

// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

var (
	// forbiddenHeaders 由HTTP客户端管理,不允许用户配置
	forbiddenHeaders = map[string]bool{
		"host":              true,
		"content-length":    true,
		"transfer-encoding": true,
		"connection":        true,
	}

	// sensitiveKeywords 名称包含这些关键字的头部在日志中脱敏
	sensitiveKeywords = []string{"authorization", "token", "key", "secret", "password", "cookie"}

	headerNameRegex  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValueRegex = regexp.MustCompile(`^[\x20-\x7E\t]*$`)
)

// ValidateHeaders 按RFC 7230检查头部名称和值,返回第一个错误
func ValidateHeaders(headers http.Header) error {
	for name, values := range headers {
		if forbiddenHeaders[strings.ToLower(name)] {
			return &models.ValidationError{HeaderName: name, Reason: "此头部由HTTP客户端自动管理,不允许自定义"}
		}
		if !headerNameRegex.MatchString(name) {
			return &models.ValidationError{HeaderName: name, Reason: "头部名称包含非法字符 (仅允许字母、数字和连字符)"}
		}
		for _, value := range values {
			if len(value) > MaxHeaderValueLength {
				return &models.ValidationError{
					HeaderName: name,
					Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), MaxHeaderValueLength),
				}
			}
			if !headerValueRegex.MatchString(value) {
				return &models.ValidationError{HeaderName: name, Reason: "头部值包含非法字符 (仅允许可打印ASCII字符)"}
			}
		}
	}
	return nil
}

// RedactHeaders 返回脱敏后的头部(用于日志)
func RedactHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = redactValue(name, values[0])
	}
	return result
}

func redactValue(name, value string) string {
	lower := strings.ToLower(name)
	sensitive := false
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			sensitive = true
			break
		}
	}
	switch {
	case !sensitive:
		return value
	case strings.HasPrefix(value, "Bearer "):
		return "Bearer ***"
	case len(value) > 8:
		return value[:4] + "***" + value[len(value)-4:]
	default:
		return "***"
	}
}
