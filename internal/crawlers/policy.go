package crawlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/temoto/robotstxt"
)

// Verdict 排除策略的判定结果
type Verdict int

const (
	// VerdictEligible 可以抓取
	VerdictEligible Verdict = iota
	// VerdictSkipPattern 命中临时跳过规则(登录、确认链接)
	VerdictSkipPattern
	// VerdictVisited 已访问
	VerdictVisited
	// VerdictScheme 非http/https协议
	VerdictScheme
	// VerdictOutOfScope 主机不在允许的域名后缀内
	VerdictOutOfScope
	// VerdictDisallowed 命中禁止的路径前缀
	VerdictDisallowed
	// VerdictExtension 扩展名在跳过列表中
	VerdictExtension
)

// String 返回判定名称
func (v Verdict) String() string {
	switch v {
	case VerdictEligible:
		return "eligible"
	case VerdictSkipPattern:
		return "skip-pattern"
	case VerdictVisited:
		return "visited"
	case VerdictScheme:
		return "scheme"
	case VerdictOutOfScope:
		return "out-of-scope"
	case VerdictDisallowed:
		return "disallowed"
	case VerdictExtension:
		return "extension"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// robotsAgent 静态禁止规则只写在通配分组下
const robotsAgent = "*"

// ExclusionPolicy 排除策略
// 各谓词按固定顺序求值,无副作用,与抓取顺序无关
type ExclusionPolicy struct {
	domainSuffix string
	skipRules    []models.SkipRule
	disallow     *robotstxt.Group
	extensions   []string
}

// NewExclusionPolicy 根据配置创建排除策略
// 禁止路径前缀以 robots.txt 规则的形式编译,匹配语义与 robots.txt 一致(前缀匹配,支持 * 和 $)
func NewExclusionPolicy(cfg models.ExclusionConfig) (*ExclusionPolicy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("排除配置无效: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("User-agent: " + robotsAgent + "\n")
	for _, prefix := range cfg.DisallowedPathPrefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if !strings.HasPrefix(prefix, "/") && !strings.HasPrefix(prefix, "*") {
			prefix = "/" + prefix
		}
		sb.WriteString("Disallow: " + prefix + "\n")
	}
	robots, err := robotstxt.FromString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("编译禁止路径规则失败: %w", err)
	}

	exts := make([]string, 0, len(cfg.SkipExtensions))
	for _, ext := range cfg.SkipExtensions {
		exts = append(exts, strings.ToLower(ext))
	}

	return &ExclusionPolicy{
		domainSuffix: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cfg.AllowedDomainSuffix)), "."),
		skipRules:    cfg.SkipPatterns,
		disallow:     robots.FindGroup(robotsAgent),
		extensions:   exts,
	}, nil
}

// MatchesSkipPattern 判断URL是否命中临时跳过规则
func (p *ExclusionPolicy) MatchesSkipPattern(rawURL string) bool {
	for _, rule := range p.skipRules {
		if rule.Matches(rawURL) {
			return true
		}
	}
	return false
}

// InScope 判断主机是否在允许的域名后缀内
// 主机必须等于后缀或以 "."+后缀 结尾, notmdc.edu 不属于 mdc.edu
func (p *ExclusionPolicy) InScope(host string) bool {
	host = strings.ToLower(host)
	return host == p.domainSuffix || strings.HasSuffix(host, "."+p.domainSuffix)
}

// Evaluate 按顺序求值无状态谓词: 跳过规则、协议、域名、禁止路径、扩展名
// 已访问检查依赖Frontier状态,由爬取器在跳过规则之后单独执行
func (p *ExclusionPolicy) Evaluate(rawURL string) Verdict {
	if p.MatchesSkipPattern(rawURL) {
		return VerdictSkipPattern
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return VerdictScheme
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return VerdictScheme
	}

	if !p.InScope(parsed.Hostname()) {
		return VerdictOutOfScope
	}

	// 前缀按URL中的原始(转义)形式比较,配置中写 /a%20b/ 才能匹配
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !p.disallow.Test(path) {
		return VerdictDisallowed
	}

	lowerPath := strings.ToLower(path)
	for _, ext := range p.extensions {
		if strings.HasSuffix(lowerPath, ext) {
			return VerdictExtension
		}
	}

	return VerdictEligible
}
