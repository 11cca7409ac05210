package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/mdcharvest/internal/categorizer"
	"github.com/RecoveryAshes/mdcharvest/internal/config"
	"github.com/RecoveryAshes/mdcharvest/internal/core"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile  string
	headersFile string
	verbose     bool
	logLevel    string

	// HTTP头部参数
	headers        []string
	validateConfig bool

	// crawl
	seeds     []string
	seedFile  string
	maxPages  int
	workers   int
	delayMin  float64
	delayMax  float64
	timeout   int
	userAgent string
	resume    bool
	linksOut  string

	// clean
	cleanInput string
	htmlOut    string
	pdfOut     string

	// categorize
	catInput      string
	catOutCSV     string
	catOutTXT     string
	pdfInput      string
	pdfOutCSV     string
	pdfOutTXT     string
	rulesFile     string
	primaryDomain string
	noProgress    bool
)

// appConfig 在 PersistentPreRunE 中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "mdcharvest",
	Short: "大学网站爬取与URL分类工具",
	Long: `mdcharvest - 面向 mdc.edu 的站内爬取与URL分类工具

流程:
  1. crawl       广度优先爬取站内页面,输出URL列表和错误日志
  2. clean       去片段、去重,拆分为HTML列表和PDF列表
  3. categorize  按规则表为每个URL打分分类,输出CSV和内容抽取目标列表

示例:
  mdcharvest crawl --max-pages 500
  mdcharvest crawl --resume
  mdcharvest clean
  mdcharvest categorize --pdf-out-txt data/target_pdfs.txt

  # 自定义HTTP头部
  mdcharvest crawl -H "From: student@mymdc.net"

  # 验证配置文件
  mdcharvest --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = cfg

		logConfig := cfg.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return runValidateConfig()
		}
		return cmd.Help()
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "从种子URL开始站内爬取",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedFile != "" {
			fileSeeds, err := utils.ReadURLsFromFile(seedFile)
			if err != nil {
				return fmt.Errorf("读取种子文件失败: %w", err)
			}
			seeds = append(seeds, fileSeeds...)
		}

		normalized, err := NormalizeSeeds(seeds)
		if err != nil {
			return err
		}
		if err := ValidateCrawlFlags(maxPages, workers, delayMin, delayMax, timeout); err != nil {
			return err
		}

		appConfig.MergeCLIFlags(core.CrawlOverrides{
			Seeds:     normalized,
			MaxPages:  maxPages,
			Workers:   workers,
			DelayMin:  delayMin,
			DelayMax:  delayMax,
			Timeout:   timeout,
			UserAgent: userAgent,
			Resume:    resume,
			LinksFile: linksOut,
		})

		headerManager, err := core.NewHeaderManager(headersFile, appConfig.Crawl.UserAgent, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		// Ctrl+C 取消本次运行,已抓取的结果和检查点会保留
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := core.NewCrawlJob(appConfig, headerManager).Run(ctx)
		if err != nil {
			return fmt.Errorf("爬取失败: %w", err)
		}

		utils.Infof("✨ 爬取任务完成: %s", report.Outcome.Describe())
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "清洗爬取结果并拆分HTML/PDF列表",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := firstNonEmpty(cleanInput, appConfig.Output.LinksFile)
		html := firstNonEmpty(htmlOut, appConfig.Output.HTMLLinksFile)
		pdf := firstNonEmpty(pdfOut, appConfig.Output.PDFLinksFile)

		if _, err := core.RunClean(input, html, pdf); err != nil {
			return fmt.Errorf("清洗失败: %w", err)
		}
		return nil
	},
}

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "按规则表为URL分类",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig.Categorize
		cfg.Input = firstNonEmpty(catInput, cfg.Input)
		cfg.OutCSV = firstNonEmpty(catOutCSV, cfg.OutCSV)
		cfg.OutTXT = firstNonEmpty(catOutTXT, cfg.OutTXT)
		cfg.PDFInput = firstNonEmpty(pdfInput, cfg.PDFInput)
		cfg.PDFOutCSV = firstNonEmpty(pdfOutCSV, cfg.PDFOutCSV)
		cfg.PDFOutTXT = firstNonEmpty(pdfOutTXT, cfg.PDFOutTXT)
		cfg.RulesFile = firstNonEmpty(rulesFile, cfg.RulesFile)
		cfg.PrimaryDomain = firstNonEmpty(primaryDomain, cfg.PrimaryDomain)

		rules, err := config.LoadRuleSet(cfg.RulesFile)
		if err != nil {
			return err
		}
		c, err := categorizer.New(rules, cfg.PrimaryDomain)
		if err != nil {
			return err
		}

		batch := core.NewBatchCategorizer(c, !noProgress)
		if _, err := batch.RunCategorize(cfg, appConfig.Output.ReportsDir); err != nil {
			return err
		}
		utils.Info("✨ 分类完成")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mdcharvest %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// runValidateConfig 验证应用配置、HTTP头部配置和规则表
func runValidateConfig() error {
	utils.Info("🔍 验证配置...")

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	headerManager, err := core.NewHeaderManager(headersFile, appConfig.Crawl.UserAgent, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载头部配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("头部验证失败: %w", err)
	}

	rules, err := config.LoadRuleSet(appConfig.Categorize.RulesFile)
	if err != nil {
		return err
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("种子URL: %v", appConfig.Crawl.Seeds)
	utils.Infof("允许的域名后缀: %s", appConfig.Exclusion.AllowedDomainSuffix)
	utils.Infof("分类数: %d (优先 %d)", len(rules.Categories()), len(rules.PriorityCategories))
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-config", "", "HTTP头部配置文件路径 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// crawl
	crawlCmd.Flags().StringSliceVarP(&seeds, "seed", "s", nil, "种子URL,可多次指定 (默认使用配置文件)")
	crawlCmd.Flags().StringVarP(&seedFile, "seed-file", "f", "", "包含种子URL列表的文件")
	crawlCmd.Flags().IntVarP(&maxPages, "max-pages", "n", 0, "成功抓取页面上限 (默认使用配置文件)")
	crawlCmd.Flags().IntVarP(&workers, "workers", "w", 0, "并发worker数 (默认1,即顺序爬取)")
	crawlCmd.Flags().Float64Var(&delayMin, "delay-min", -1, "礼貌延迟下限(秒)")
	crawlCmd.Flags().Float64Var(&delayMax, "delay-max", -1, "礼貌延迟上限(秒)")
	crawlCmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "单次请求超时(秒)")
	crawlCmd.Flags().StringVar(&userAgent, "user-agent", "", "自定义User-Agent")
	crawlCmd.Flags().BoolVar(&resume, "resume", false, "从检查点恢复")
	crawlCmd.Flags().StringVarP(&linksOut, "output", "o", "", "结果文件路径")

	// clean
	cleanCmd.Flags().StringVarP(&cleanInput, "input", "i", "", "爬取结果文件 (默认 output.links_file)")
	cleanCmd.Flags().StringVar(&htmlOut, "html-out", "", "HTML列表输出路径")
	cleanCmd.Flags().StringVar(&pdfOut, "pdf-out", "", "PDF列表输出路径")

	// categorize
	categorizeCmd.Flags().StringVarP(&catInput, "input", "i", "", "HTML链接文件")
	categorizeCmd.Flags().StringVar(&catOutCSV, "out-csv", "", "HTML分类CSV")
	categorizeCmd.Flags().StringVar(&catOutTXT, "out-txt", "", "HTML内容抽取目标列表")
	categorizeCmd.Flags().StringVar(&pdfInput, "pdf", "", "PDF链接文件 (不存在时跳过)")
	categorizeCmd.Flags().StringVar(&pdfOutCSV, "pdf-out-csv", "", "PDF分类CSV")
	categorizeCmd.Flags().StringVar(&pdfOutTXT, "pdf-out-txt", "", "PDF内容抽取目标列表 (可选)")
	categorizeCmd.Flags().StringVar(&rulesFile, "rules", "", "分类规则表YAML (默认使用内置规则)")
	categorizeCmd.Flags().StringVar(&primaryDomain, "primary-domain", "", "路径规则生效的主域名")
	categorizeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	rootCmd.AddCommand(crawlCmd, cleanCmd, categorizeCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
