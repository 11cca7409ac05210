// Package categorizer 基于规则表为URL打分并选出唯一分类
//
// 每个URL独立评估全部规则表,收集所有命中的 (分类, 分值, 理由),
// 再按最高分选出胜者: 平局时优先取优先(MVP)分类,否则取表声明顺序中的第一个.
// 分类器无共享可变状态,可并发调用.
package categorizer

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
)

// scoreEpsilon 分值比较容差(分值均为规则字面量)
const scoreEpsilon = 1e-9

// DefaultPrimaryDomain 默认主站域名
const DefaultPrimaryDomain = "mdc.edu"

// Candidate 一条规则命中
type Candidate struct {
	Category string
	Score    float64
	Reason   string
	Kind     RuleKind
}

// Decision 单个URL的分类结果
type Decision struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
	Priority bool    `json:"priority"`
}

// Confidence 返回两位小数的置信度文本
func (d Decision) Confidence() string {
	return fmt.Sprintf("%.2f", d.Score)
}

// IsError 分类过程出错而降级的决策
func (d Decision) IsError() bool {
	return strings.HasPrefix(d.Reason, "error:")
}

// Fallback 无规则命中时的决策
func Fallback() Decision {
	return Decision{Category: UncategorizedCategory, Score: 0, Reason: "no-rule"}
}

// Categorizer 规则分类器
type Categorizer struct {
	rules         *RuleSet
	primaryDomain string
}

// New 创建分类器
// rules 为 nil 时使用默认规则表; primaryDomain 为空时使用 mdc.edu
func New(rules *RuleSet, primaryDomain string) (*Categorizer, error) {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	if !rules.compiled {
		if err := rules.Compile(); err != nil {
			return nil, fmt.Errorf("编译规则表失败: %w", err)
		}
	}
	primaryDomain = strings.ToLower(strings.TrimSpace(primaryDomain))
	if primaryDomain == "" {
		primaryDomain = DefaultPrimaryDomain
	}
	return &Categorizer{rules: rules, primaryDomain: primaryDomain}, nil
}

// Rules 返回分类器使用的规则表
func (c *Categorizer) Rules() *RuleSet {
	return c.rules
}

// IsPriority 判断分类是否属于优先集合
func (c *Categorizer) IsPriority(category string) bool {
	return c.rules.IsPriority(category)
}

// Categorize 为单个URL分类
// 匹配过程中的任何错误(含panic)都降级为兜底分类,理由携带错误文本
func (c *Categorizer) Categorize(rawURL string, isPdf bool) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = c.errorDecision(&models.RuleEvaluationError{URL: rawURL, Cause: fmt.Errorf("%v", r)})
		}
	}()

	candidates, err := c.Candidates(rawURL, isPdf)
	if err != nil {
		return c.errorDecision(err)
	}
	return c.Choose(candidates)
}

func (c *Categorizer) errorDecision(err error) Decision {
	return Decision{Category: UncategorizedCategory, Score: 0, Reason: err.Error()}
}

// Candidates 收集所有规则表的命中,不做短路
func (c *Categorizer) Candidates(rawURL string, isPdf bool) ([]Candidate, error) {
	text := models.StripFragment(strings.TrimSpace(rawURL))

	parsed, err := url.Parse(text)
	if err != nil {
		return nil, &models.RuleEvaluationError{URL: rawURL, Cause: err}
	}
	host := strings.ToLower(parsed.Hostname())
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	pathLower := strings.ToLower(path)

	var candidates []Candidate
	add := func(kind RuleKind, r *Rule) {
		candidates = append(candidates, Candidate{Category: r.Category, Score: r.Score, Reason: r.Tag(), Kind: kind})
	}

	// 1) 主机规则
	for i := range c.rules.Host {
		if r := &c.rules.Host[i]; r.rx.MatchString(host) {
			add(KindHost, r)
		}
	}

	// 2) 路径规则: 只对主站及其子域生效,避免外站误判
	if c.inPrimaryDomain(host) {
		for i := range c.rules.Path {
			if r := &c.rules.Path[i]; r.rx.MatchString(pathLower) {
				add(KindPath, r)
			}
		}
	}

	// 3) 关键字提示
	for i := range c.rules.Keyword {
		if r := &c.rules.Keyword[i]; r.rx.MatchString(text) {
			add(KindKeyword, r)
		}
	}

	// 4) PDF专属提示
	if isPdf {
		for i := range c.rules.PDF {
			if r := &c.rules.PDF[i]; r.rx.MatchString(text) {
				add(KindPDF, r)
			}
		}
	}

	return candidates, nil
}

func (c *Categorizer) inPrimaryDomain(host string) bool {
	return host == c.primaryDomain || strings.HasSuffix(host, "."+c.primaryDomain)
}

// Choose 从候选中选出胜者
// 最高分(容差比较)中优先取第一个优先分类,否则取第一个候选;
// 理由为胜出分类在胜出分值下所有标签以 ";" 拼接
func (c *Categorizer) Choose(candidates []Candidate) Decision {
	if len(candidates) == 0 {
		return Fallback()
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	topScore := sorted[0].Score
	winner := sorted[0]
	for _, cand := range sorted {
		if !tied(cand.Score, topScore) {
			break
		}
		if c.rules.IsPriority(cand.Category) {
			winner = cand
			break
		}
	}

	var reasons []string
	for _, cand := range sorted {
		if cand.Category == winner.Category && tied(cand.Score, topScore) {
			reasons = append(reasons, cand.Reason)
		}
	}

	return Decision{
		Category: winner.Category,
		Score:    winner.Score,
		Reason:   strings.Join(reasons, ";"),
		Priority: c.rules.IsPriority(winner.Category),
	}
}

func tied(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < scoreEpsilon
}

// IsTarget 判断URL是否进入内容抽取目标集
// HTML流: 优先分类且不是PDF; PDF流: 优先分类
func (c *Categorizer) IsTarget(rawURL string, d Decision, pdfStream bool) bool {
	if !c.rules.IsPriority(d.Category) {
		return false
	}
	if pdfStream {
		return true
	}
	return !models.IsPDFURL(rawURL)
}
