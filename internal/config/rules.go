package config

import (
	"fmt"

	"github.com/RecoveryAshes/mdcharvest/internal/categorizer"
	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
	"github.com/spf13/viper"
)

// LoadRuleSet 从YAML加载分类规则表
// path 为空时返回内置默认规则表;
// 文件中缺省的表(例如只写了 host_rules)沿用默认规则表中的对应部分
func LoadRuleSet(path string) (*categorizer.RuleSet, error) {
	defaults := categorizer.DefaultRuleSet()
	if path == "" {
		return defaults, nil
	}
	if err := checkFileSize(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}

	var rs categorizer.RuleSet
	if err := v.Unmarshal(&rs); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("规则表绑定失败: %w", err)}
	}

	if !v.IsSet("host_rules") {
		rs.Host = defaults.Host
	}
	if !v.IsSet("path_rules") {
		rs.Path = defaults.Path
	}
	if !v.IsSet("keyword_rules") {
		rs.Keyword = defaults.Keyword
	}
	if !v.IsSet("pdf_rules") {
		rs.PDF = defaults.PDF
	}
	if !v.IsSet("priority_categories") {
		rs.PriorityCategories = defaults.PriorityCategories
	}
	if !v.IsSet("other_categories") {
		rs.OtherCategories = defaults.OtherCategories
	}

	if err := rs.Compile(); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}

	utils.Infof("📐 已加载规则表 %s: host=%d path=%d keyword=%d pdf=%d",
		path, len(rs.Host), len(rs.Path), len(rs.Keyword), len(rs.PDF))
	return &rs, nil
}
