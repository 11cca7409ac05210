package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
	lc := cfg.LogConfig()
	if lc.MainFile != "mdcharvest.log" || lc.ErrorFile != "mdcharvest_error.log" || lc.ErrorLevel != "error" {
		t.Errorf("日志文件默认值错误: %+v", lc)
	}
	if len(cfg.Crawl.Seeds) != 1 || cfg.Crawl.Seeds[0] != "https://www.mdc.edu/" {
		t.Errorf("默认种子 = %v", cfg.Crawl.Seeds)
	}
	if cfg.Crawl.MaxPages != 20000 || cfg.Crawl.Workers != 1 || cfg.Crawl.RetryAttempts != 2 {
		t.Errorf("crawl默认值错误: %+v", cfg.Crawl)
	}
	if cfg.Crawl.DelayMin != 0.5 || cfg.Crawl.DelayMax != 1.0 {
		t.Errorf("礼貌延迟默认值错误: %v-%v", cfg.Crawl.DelayMin, cfg.Crawl.DelayMax)
	}
	if cfg.Exclusion.AllowedDomainSuffix != "mdc.edu" || len(cfg.Exclusion.DisallowedPathPrefixes) != 4 {
		t.Errorf("exclusion默认值错误: %+v", cfg.Exclusion)
	}
	if len(cfg.Exclusion.SkipPatterns) != 2 || len(cfg.Exclusion.SkipPatterns[0].Contains) != 2 {
		t.Fatalf("skip_patterns = %+v", cfg.Exclusion.SkipPatterns)
	}
	if !cfg.Exclusion.SkipPatterns[0].Matches("https://calendar.mdc.edu/event/9/confirm") {
		t.Errorf("默认跳过规则未生效")
	}
	if cfg.Categorize.PrimaryDomain != "mdc.edu" || cfg.Categorize.PDFOutTXT != "" {
		t.Errorf("categorize默认值错误: %+v", cfg.Categorize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("默认配置应通过验证: %v", err)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
crawl:
  max_pages: 50
  delay_min: 0
  delay_max: 0
exclusion:
  allowed_domain_suffix: example.edu
  disallowed_path_prefixes: ["/private/"]
  skip_patterns:
    - contains: ["logout"]
`)
	t.Setenv("MDCHARVEST_CRAWL_WORKERS", "3")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Crawl.MaxPages != 50 || cfg.Crawl.DelayMax != 0 {
		t.Errorf("配置文件值未生效: %+v", cfg.Crawl)
	}
	if cfg.Crawl.Workers != 3 {
		t.Errorf("环境变量未生效: workers = %d", cfg.Crawl.Workers)
	}
	if cfg.Exclusion.AllowedDomainSuffix != "example.edu" || cfg.Exclusion.DisallowedPathPrefixes[0] != "/private/" {
		t.Errorf("exclusion = %+v", cfg.Exclusion)
	}
	if len(cfg.Exclusion.SkipPatterns) != 1 || cfg.Exclusion.SkipPatterns[0].Contains[0] != "logout" {
		t.Errorf("skip_patterns = %+v", cfg.Exclusion.SkipPatterns)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "crawl: [unclosed\n"))
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("期望ConfigError, 得到 %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"相对种子", func(c *Config) { c.Crawl.Seeds = []string{"/about"} }},
		{"预算为0", func(c *Config) { c.Crawl.MaxPages = 0 }},
		{"延迟范围颠倒", func(c *Config) { c.Crawl.DelayMin, c.Crawl.DelayMax = 2, 1 }},
		{"缺少域名后缀", func(c *Config) { c.Exclusion.AllowedDomainSuffix = "" }},
		{"扩展名缺少点号", func(c *Config) { c.Exclusion.SkipExtensions = []string{"png"} }},
		{"结果文件为空", func(c *Config) { c.Output.LinksFile = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, "{}\n"))
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("期望验证失败")
			}
		})
	}
}

func TestMergeCLIFlags(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}

	cfg.MergeCLIFlags(CrawlOverrides{DelayMin: -1, DelayMax: -1})
	if cfg.Crawl.DelayMin != 0.5 || cfg.Crawl.MaxPages != 20000 || cfg.Crawl.Resume {
		t.Errorf("未设置的参数不应覆盖配置: %+v", cfg.Crawl)
	}

	cfg.MergeCLIFlags(CrawlOverrides{
		Seeds:     []string{"https://www.mdc.edu/admissions/"},
		MaxPages:  10,
		Workers:   2,
		DelayMin:  0,
		DelayMax:  0,
		Resume:    true,
		LinksFile: "out/links.txt",
	})
	if cfg.Crawl.MaxPages != 10 || cfg.Crawl.Workers != 2 || cfg.Crawl.DelayMax != 0 || !cfg.Crawl.Resume {
		t.Errorf("命令行参数未生效: %+v", cfg.Crawl)
	}
	if cfg.Crawl.Seeds[0] != "https://www.mdc.edu/admissions/" || cfg.Output.LinksFile != "out/links.txt" {
		t.Errorf("种子或输出路径未生效")
	}
}
