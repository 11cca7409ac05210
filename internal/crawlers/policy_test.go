package crawlers

import (
	"testing"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
)

func mdcExclusion() models.ExclusionConfig {
	return models.ExclusionConfig{
		AllowedDomainSuffix:    "mdc.edu",
		DisallowedPathPrefixes: []string{"/newsandnotes/", "/trackback/", "/publications/", "/email/"},
		SkipExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif", ".doc", ".docx", ".xls", ".xlsx",
			".ppt", ".pptx", ".zip", ".rar", ".mp4", ".mp3",
		},
		SkipPatterns: []models.SkipRule{
			{Contains: []string{"calendar.mdc.edu/event/", "confirm"}},
			{Contains: []string{"auth/shib_login"}},
		},
	}
}

func TestExclusionPolicyEvaluate(t *testing.T) {
	policy, err := NewExclusionPolicy(mdcExclusion())
	if err != nil {
		t.Fatalf("创建排除策略失败: %v", err)
	}

	tests := []struct {
		name string
		url  string
		want Verdict
	}{
		{"主页", "https://www.mdc.edu/", VerdictEligible},
		{"主域名大写", "https://MDC.EDU/about", VerdictEligible},
		{"带端口", "https://www.mdc.edu:8443/x", VerdictEligible},
		{"PDF不跳过", "https://www.mdc.edu/docs/catalog.pdf", VerdictEligible},
		{"确认链接", "https://calendar.mdc.edu/event/1/confirm", VerdictSkipPattern},
		{"登录链接", "https://www.mdc.edu/auth/shib_login?target=x", VerdictSkipPattern},
		{"mailto", "mailto:someone@mdc.edu", VerdictScheme},
		{"javascript", "javascript:void(0)", VerdictScheme},
		{"外站", "https://www.fiu.edu/", VerdictOutOfScope},
		{"后缀相似的外站", "https://notmdc.edu/", VerdictOutOfScope},
		{"禁止路径", "https://www.mdc.edu/newsandnotes/story1", VerdictDisallowed},
		{"禁止前缀需要完整匹配", "https://www.mdc.edu/newsandnotes", VerdictEligible},
		{"图片扩展名大写", "https://www.mdc.edu/img/logo.PNG", VerdictExtension},
		{"域名检查先于路径检查", "https://www.fiu.edu/newsandnotes/a.jpg", VerdictOutOfScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Evaluate(tt.url); got != tt.want {
				t.Errorf("Evaluate(%q) = %s, 期望 %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestExclusionPolicyIsPure(t *testing.T) {
	policy, err := NewExclusionPolicy(mdcExclusion())
	if err != nil {
		t.Fatal(err)
	}
	u := "https://www.mdc.edu/newsandnotes/story1"
	for i := 0; i < 3; i++ {
		if got := policy.Evaluate(u); got != VerdictDisallowed {
			t.Fatalf("第%d次求值 = %s", i+1, got)
		}
	}
}

func TestExclusionPolicyInvalidConfig(t *testing.T) {
	if _, err := NewExclusionPolicy(models.ExclusionConfig{}); err == nil {
		t.Errorf("缺少域名后缀应报错")
	}
}

func TestExclusionPolicyPrefixNormalization(t *testing.T) {
	cfg := mdcExclusion()
	cfg.AllowedDomainSuffix = ".MDC.edu"
	cfg.DisallowedPathPrefixes = []string{"private/"}
	policy, err := NewExclusionPolicy(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := policy.Evaluate("https://www.mdc.edu/private/x"); got != VerdictDisallowed {
		t.Errorf("缺少前导斜杠的前缀应被补全, 得到 %s", got)
	}
	if !policy.InScope("mdc.edu") {
		t.Errorf("后缀前的点号应被忽略")
	}
}

func TestExclusionPolicyEscapedPrefix(t *testing.T) {
	cfg := mdcExclusion()
	cfg.DisallowedPathPrefixes = []string{"/a%20b/"}
	policy, err := NewExclusionPolicy(cfg)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url  string
		want Verdict
	}{
		{"https://www.mdc.edu/a%20b/x", VerdictDisallowed},
		{"https://www.mdc.edu/a%20b/", VerdictDisallowed},
		{"https://www.mdc.edu/a%20c/x", VerdictEligible},
		{"https://www.mdc.edu/ab/x", VerdictEligible},
	}
	for _, tt := range tests {
		if got := policy.Evaluate(tt.url); got != tt.want {
			t.Errorf("Evaluate(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}
