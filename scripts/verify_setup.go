package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/RecoveryAshes/mdcharvest/internal/config"
	"github.com/RecoveryAshes/mdcharvest/internal/core"
	"github.com/RecoveryAshes/mdcharvest/internal/crawlers"
)

// 用法: go run scripts/verify_setup.go [--offline]
func main() {
	fmt.Println("==============================================")
	fmt.Println("  mdcharvest 运行环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	offline := len(os.Args) > 1 && os.Args[1] == "--offline"
	allOK := true

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 检查配置
	fmt.Println()
	fmt.Println("检查配置...")
	cfg, err := core.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ 配置无效: %v\n", err)
		allOK = false
	} else {
		fmt.Printf("✅ 配置有效: %d 个种子, max_pages=%d, workers=%d\n",
			len(cfg.Crawl.Seeds), cfg.Crawl.MaxPages, cfg.Crawl.Workers)
	}

	rules, err := config.LoadRuleSet(cfg.Categorize.RulesFile)
	if err != nil {
		fmt.Printf("❌ 规则表无效: %v\n", err)
		allOK = false
	} else {
		fmt.Printf("✅ 规则表: %d 个分类\n", len(rules.Categories()))
	}

	policy, err := crawlers.NewExclusionPolicy(cfg.Exclusion)
	if err != nil {
		fmt.Printf("❌ 排除策略无效: %v\n", err)
		allOK = false
	} else {
		for _, seed := range cfg.Crawl.Seeds {
			if v := policy.Evaluate(seed); v != crawlers.VerdictEligible {
				fmt.Printf("❌ 种子会被排除策略过滤 (%s): %s\n", v, seed)
				allOK = false
			}
		}
	}

	// 检查输出目录
	fmt.Println()
	fmt.Println("检查输出目录...")
	outputs := []string{
		cfg.Output.LinksFile,
		cfg.Output.ErrorLog,
		cfg.Output.CheckpointFile,
		cfg.Output.HTMLLinksFile,
		cfg.Output.PDFLinksFile,
		cfg.Categorize.OutCSV,
	}
	checked := make(map[string]bool)
	for _, path := range outputs {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if checked[dir] {
			continue
		}
		checked[dir] = true
		if err := checkWritable(dir); err != nil {
			fmt.Printf("❌ %s/ 不可写: %v\n", dir, err)
			allOK = false
		} else {
			fmt.Printf("✅ %s/\n", dir)
		}
	}

	// 检查种子可达性
	if !offline {
		fmt.Println()
		fmt.Println("检查种子可达性...")
		fetcher := crawlers.NewFetcher(crawlers.FetcherConfig{
			UserAgent:     cfg.Crawl.UserAgent,
			Timeout:       cfg.Crawl.Timeout(),
			RetryAttempts: 1,
		}, nil)
		for _, seed := range cfg.Crawl.Seeds {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Crawl.Timeout()+5*time.Second)
			page, err := fetcher.Fetch(ctx, seed)
			cancel()
			if err != nil {
				fmt.Printf("⚠️  %s: %v\n", seed, err)
				continue
			}
			fmt.Printf("✅ %s -> %d (%s)\n", seed, page.StatusCode, page.FinalURL)
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'mdcharvest crawl' 开始爬取")
		fmt.Println("  2. 运行 'mdcharvest clean' 拆分HTML/PDF列表")
		fmt.Println("  3. 运行 'mdcharvest categorize' 分类")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}

// checkWritable 创建目录并写入一个临时文件
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".verify-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
