package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// PDFExtension 被识别为PDF文档的路径扩展名
const PDFExtension = ".pdf"

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

// StripFragment 去掉URL中的#片段
// 去重键和已访问集合一律使用去片段后的URL
func StripFragment(rawURL string) string {
	if idx := strings.IndexByte(rawURL, '#'); idx != -1 {
		return rawURL[:idx]
	}
	return rawURL
}

// IsPDFURL 判断URL(去片段后)是否以.pdf结尾,大小写不敏感
func IsPDFURL(rawURL string) bool {
	return strings.HasSuffix(strings.ToLower(StripFragment(rawURL)), PDFExtension)
}

// NewRunID 生成一次运行的唯一ID
func NewRunID() string {
	return uuid.New().String()
}
