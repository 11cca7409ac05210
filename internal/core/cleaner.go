package core

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"github.com/RecoveryAshes/mdcharvest/internal/utils"
)

// CleanResult 清洗结果
type CleanResult struct {
	All        []string // 去重后的全部URL,保持首次出现顺序
	HTML       []string
	PDF        []string
	Input      int // 输入行数(非空)
	Duplicates int
}

// CleanLinks 去片段、去空白、保序去重,并拆分为HTML和PDF两个列表
func CleanLinks(raw []string) CleanResult {
	result := CleanResult{}
	seen := make(map[string]struct{}, len(raw))

	for _, line := range raw {
		u := models.StripFragment(strings.TrimSpace(line))
		if u == "" {
			continue
		}
		result.Input++
		if _, dup := seen[u]; dup {
			result.Duplicates++
			continue
		}
		seen[u] = struct{}{}
		result.All = append(result.All, u)

		if models.IsPDFURL(u) {
			result.PDF = append(result.PDF, u)
		} else {
			result.HTML = append(result.HTML, u)
		}
	}
	return result
}

// RunClean 读取爬取结果文件,写出HTML和PDF列表
func RunClean(input, htmlOut, pdfOut string) (*CleanResult, error) {
	lines, err := utils.ReadLines(input)
	if err != nil {
		return nil, fmt.Errorf("读取链接文件失败: %w", err)
	}

	result := CleanLinks(lines)
	if err := utils.WriteLines(htmlOut, result.HTML); err != nil {
		return nil, err
	}
	if err := utils.WriteLines(pdfOut, result.PDF); err != nil {
		return nil, err
	}

	utils.Infof("🧹 清洗完成: 输入 %d, 去重 %d, HTML %d, PDF %d",
		result.Input, result.Duplicates, len(result.HTML), len(result.PDF))
	utils.Infof("💾 %s, %s", htmlOut, pdfOut)
	return &result, nil
}
