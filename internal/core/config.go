package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/mdcharvest/internal/categorizer"
	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 例如 MDCHARVEST_CRAWL_MAX_PAGES=500
const EnvPrefix = "MDCHARVEST"

// Config 应用程序配置
type Config struct {
	Crawl      models.CrawlConfig     `mapstructure:"crawl"`
	Exclusion  models.ExclusionConfig `mapstructure:"exclusion"`
	Output     OutputConfig           `mapstructure:"output"`
	Categorize CategorizeConfig       `mapstructure:"categorize"`
	Logging    LoggingConfig          `mapstructure:"logging"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string         `mapstructure:"level"`
	LogDir     string         `mapstructure:"log_dir"`
	MainFile   string         `mapstructure:"main_file"`
	ErrorFile  string         `mapstructure:"error_file"` // 为空时不单独输出错误日志
	ErrorLevel string         `mapstructure:"error_level"`
	Rotation   RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出文件
type OutputConfig struct {
	LinksFile      string `mapstructure:"links_file"`      // 爬取结果,每行一个URL
	ErrorLog       string `mapstructure:"error_log"`       // 抓取错误日志(追加)
	CheckpointFile string `mapstructure:"checkpoint_file"` // 断点续爬检查点
	ReportsDir     string `mapstructure:"reports_dir"`
	HTMLLinksFile  string `mapstructure:"html_links_file"` // clean 输出的HTML列表
	PDFLinksFile   string `mapstructure:"pdf_links_file"`  // clean 输出的PDF列表
}

// CategorizeConfig 分类配置
type CategorizeConfig struct {
	RulesFile     string `mapstructure:"rules_file"` // 为空时使用内置规则表
	PrimaryDomain string `mapstructure:"primary_domain"`
	Input         string `mapstructure:"input"`
	OutCSV        string `mapstructure:"out_csv"`
	OutTXT        string `mapstructure:"out_txt"`
	PDFInput      string `mapstructure:"pdf_input"`
	PDFOutCSV     string `mapstructure:"pdf_out_csv"`
	PDFOutTXT     string `mapstructure:"pdf_out_txt"` // 可选,为空时不输出PDF目标列表
}

// LoadConfig 加载配置文件
// 优先级: 命令行 > 环境变量(.env) > 配置文件 > 默认值
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Warnf("加载.env失败: %v", err)
	}

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mdcharvest"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
		utils.Debugf("未找到配置文件,使用默认配置")
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 爬取
	v.SetDefault("crawl.seeds", []string{"https://www.mdc.edu/"})
	v.SetDefault("crawl.max_pages", 20000)
	v.SetDefault("crawl.workers", 1)
	v.SetDefault("crawl.request_timeout", 20)
	v.SetDefault("crawl.retry_attempts", 2)
	v.SetDefault("crawl.retry_backoff_ms", 600)
	v.SetDefault("crawl.delay_min", 0.5)
	v.SetDefault("crawl.delay_max", 1.0)
	v.SetDefault("crawl.max_rps", 1.0)
	v.SetDefault("crawl.max_body_size", 10)
	v.SetDefault("crawl.user_agent", "")
	v.SetDefault("crawl.checkpoint_interval", 100)
	v.SetDefault("crawl.resume", false)
	v.SetDefault("crawl.safety_threshold", 512)
	v.SetDefault("crawl.cpu_load_threshold", 90)

	// 排除策略
	v.SetDefault("exclusion.allowed_domain_suffix", "mdc.edu")
	v.SetDefault("exclusion.disallowed_path_prefixes", []string{
		"/newsandnotes/", "/trackback/", "/publications/", "/email/",
	})
	v.SetDefault("exclusion.skip_extensions", []string{
		".jpg", ".jpeg", ".png", ".gif",
		".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
		".zip", ".rar", ".mp4", ".mp3",
	})
	v.SetDefault("exclusion.skip_patterns", []map[string]interface{}{
		{"contains": []string{"calendar.mdc.edu/event/", "confirm"}},
		{"contains": []string{"auth/shib_login"}},
	})

	// 输出
	v.SetDefault("output.links_file", "data/mdc_links_raw.txt")
	v.SetDefault("output.error_log", "data/mdc_crawler_errors.log")
	v.SetDefault("output.checkpoint_file", "data/checkpoint.json")
	v.SetDefault("output.reports_dir", "reports")
	v.SetDefault("output.html_links_file", "data/html_links.txt")
	v.SetDefault("output.pdf_links_file", "data/pdf_links.txt")

	// 分类
	v.SetDefault("categorize.rules_file", "")
	v.SetDefault("categorize.primary_domain", categorizer.DefaultPrimaryDomain)
	v.SetDefault("categorize.input", "data/html_links.txt")
	v.SetDefault("categorize.out_csv", "data/urls_with_category.csv")
	v.SetDefault("categorize.out_txt", "data/target_links.txt")
	v.SetDefault("categorize.pdf_input", "data/pdf_links.txt")
	v.SetDefault("categorize.pdf_out_csv", "data/pdfs_with_category.csv")
	v.SetDefault("categorize.pdf_out_txt", "")

	// 日志
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.main_file", "mdcharvest.log")
	v.SetDefault("logging.error_file", "mdcharvest_error.log")
	v.SetDefault("logging.error_level", "error")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// Validate 验证爬取相关配置
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	if err := c.Exclusion.Validate(); err != nil {
		return fmt.Errorf("exclusion: %w", err)
	}
	for _, seed := range c.Crawl.Seeds {
		if err := models.ValidateURL(seed); err != nil {
			return fmt.Errorf("crawl.seeds [%s]: %w", seed, err)
		}
	}
	if c.Output.LinksFile == "" {
		return fmt.Errorf("output.links_file不能为空")
	}
	return nil
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
		MainFile:   c.Logging.MainFile,
		ErrorFile:  c.Logging.ErrorFile,
		ErrorLevel: c.Logging.ErrorLevel,
	}
}

// CrawlOverrides 命令行覆盖项
// 零值表示不覆盖; 延迟用负数表示不覆盖,0是合法值
type CrawlOverrides struct {
	Seeds     []string
	MaxPages  int
	Workers   int
	DelayMin  float64
	DelayMax  float64
	Timeout   int
	UserAgent string
	Resume    bool
	LinksFile string
}

// MergeCLIFlags 合并命令行参数到配置
func (c *Config) MergeCLIFlags(o CrawlOverrides) {
	if len(o.Seeds) > 0 {
		c.Crawl.Seeds = o.Seeds
	}
	if o.MaxPages > 0 {
		c.Crawl.MaxPages = o.MaxPages
	}
	if o.Workers > 0 {
		c.Crawl.Workers = o.Workers
	}
	if o.DelayMin >= 0 {
		c.Crawl.DelayMin = o.DelayMin
	}
	if o.DelayMax >= 0 {
		c.Crawl.DelayMax = o.DelayMax
	}
	if o.Timeout > 0 {
		c.Crawl.RequestTimeout = o.Timeout
	}
	if o.UserAgent != "" {
		c.Crawl.UserAgent = o.UserAgent
	}
	if o.LinksFile != "" {
		c.Output.LinksFile = o.LinksFile
	}
	if o.Resume {
		c.Crawl.Resume = true
	}
}
