package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/mdcharvest/internal/config"
	"github.com/RecoveryAshes/mdcharvest/internal/crawlers"
	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
)

// HeaderManager 管理HTTP请求头部的生命周期
// 实现 models.HeaderProvider 接口,优先级: 默认 < 配置文件 < 命令行
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	configLoader *config.HeaderConfigLoader

	once    sync.Once
	loadErr error
}

// NewHeaderManager 创建头部管理器
// 参数:
//   - configFile: 头部配置文件路径 (为空则使用 configs/headers.yaml)
//   - userAgent: 默认User-Agent (为空则使用爬虫默认UA)
//   - cliHeaders: 命令行 -H 传入的头部
func NewHeaderManager(configFile, userAgent string, cliHeaders []string) (*HeaderManager, error) {
	if userAgent == "" {
		userAgent = crawlers.DefaultUserAgent
	}
	hm := &HeaderManager{
		defaults:     defaultHeaders(userAgent),
		cli:          make(http.Header),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}
	return hm, nil
}

// defaultHeaders 系统默认头部
// 显式声明 Accept-Encoding 后,响应由抓取器自行解压(含brotli)
func defaultHeaders(userAgent string) http.Header {
	return http.Header{
		"User-Agent":      []string{userAgent},
		"Accept":          []string{"text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// LoadConfig 加载配置文件,只执行一次
func (hm *HeaderManager) LoadConfig() error {
	hm.once.Do(func() {
		headerConfig, err := hm.configLoader.LoadConfig()
		if err != nil {
			utils.Errorf("加载HTTP头部配置失败: %v", err)
			hm.loadErr = err
			return
		}

		hm.config = make(http.Header)
		for name, value := range headerConfig.Headers {
			hm.config.Set(name, value)
		}
		if len(hm.config) > 0 {
			utils.Debugf("成功加载%d个HTTP头部配置: %v", len(hm.config), utils.RedactHeaders(hm.config))
		}
	})
	return hm.loadErr
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置 → 命令行
func (hm *HeaderManager) Validate() error {
	for _, h := range []struct {
		source  string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	} {
		if err := utils.ValidateHeaders(h.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", h.source, err)
			return err
		}
	}
	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = values
		}
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return utils.RedactHeaders(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}
