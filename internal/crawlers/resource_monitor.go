package crawlers

import (
	"fmt"
	"time"

	"github.com/RecoveryAshes/mdcharvest/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源检查
// 职责: 启动并发爬取前根据可用内存和CPU负载限制worker数量
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 便于测试替换
	availableMemory func() (uint64, error)
	cpuPercent      func() (float64, error)
}

// ResourceMonitorConfig 资源监控配置
type ResourceMonitorConfig struct {
	SafetyThreshold   int64 // 可用内存低于该值(字节)时只允许1个worker
	CPULoadThreshold  int   // CPU负载阈值(%), >=200 视为禁用
	WorkerMemoryUsage int64 // 单个worker估算内存(字节)
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage <= 0 {
		config.WorkerMemoryUsage = 32 * 1024 * 1024
	}
	return &ResourceMonitor{
		config: config,
		availableMemory: func() (uint64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.Available, nil
		},
		cpuPercent: func() (float64, error) {
			// perCPU=false 返回所有核心的平均值
			percentages, err := cpu.Percent(200*time.Millisecond, false)
			if err != nil {
				return 0, err
			}
			if len(percentages) == 0 {
				return 0, fmt.Errorf("CPU使用率数据为空")
			}
			return percentages[0], nil
		},
	}
}

// RecommendWorkers 根据当前资源返回实际使用的worker数(1..requested)
// 资源信息获取失败时不做限制
func (rm *ResourceMonitor) RecommendWorkers(requested int) int {
	if requested <= 1 {
		return 1
	}

	result := requested

	available, err := rm.availableMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败,不限制worker数: %v", err)
	} else {
		availableMB := int64(available) / (1024 * 1024)
		if int64(available) < rm.config.SafetyThreshold {
			utils.Warnf("可用内存不足(当前%dMB),worker数限制为1", availableMB)
			return 1
		}
		byMemory := int((int64(available) - rm.config.SafetyThreshold) / rm.config.WorkerMemoryUsage)
		if byMemory < 1 {
			byMemory = 1
		}
		if byMemory < result {
			utils.Warnf("可用内存%dMB,worker数由%d限制为%d", availableMB, requested, byMemory)
			result = byMemory
		}
	}

	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 {
		usage, err := rm.cpuPercent()
		if err != nil {
			utils.Warnf("获取CPU使用率失败: %v", err)
		} else if usage > float64(rm.config.CPULoadThreshold) {
			half := result / 2
			if half < 1 {
				half = 1
			}
			utils.Warnf("CPU负载过高(当前%.1f%%),worker数减半为%d", usage, half)
			result = half
		}
	}

	return result
}
