package crawlers

import (
	"errors"
	"testing"
)

func TestRecommendWorkers(t *testing.T) {
	const mb = 1024 * 1024

	tests := []struct {
		name      string
		requested int
		available uint64
		memErr    error
		cpu       float64
		cpuLimit  int
		want      int
	}{
		{"单worker不检查", 1, 0, nil, 0, 0, 1},
		{"资源充足", 4, 4096 * mb, nil, 10, 80, 4},
		{"低于安全阈值", 4, 100 * mb, nil, 10, 80, 1},
		{"按内存限制", 8, 512*mb + 96*mb, nil, 10, 80, 3},
		{"CPU过载减半", 4, 4096 * mb, nil, 95, 80, 2},
		{"CPU阈值200视为禁用", 4, 4096 * mb, nil, 99, 200, 4},
		{"内存获取失败不限制", 4, 0, errors.New("unsupported"), 10, 80, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResourceMonitor(ResourceMonitorConfig{
				SafetyThreshold:  512 * mb,
				CPULoadThreshold: tt.cpuLimit,
			})
			rm.availableMemory = func() (uint64, error) { return tt.available, tt.memErr }
			rm.cpuPercent = func() (float64, error) { return tt.cpu, nil }

			if got := rm.RecommendWorkers(tt.requested); got != tt.want {
				t.Errorf("RecommendWorkers(%d) = %d, 期望 %d", tt.requested, got, tt.want)
			}
		})
	}
}
