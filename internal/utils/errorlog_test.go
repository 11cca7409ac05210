package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestErrorLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "error_log.txt")
	fixed := time.Date(2025, 11, 17, 14, 5, 23, 0, time.UTC)

	el, err := OpenErrorLog(path)
	if err != nil {
		t.Fatalf("打开错误日志失败: %v", err)
	}
	el.now = func() time.Time { return fixed }
	if err := el.Log("HTTP 404 for https://www.mdc.edu/missing"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	el.Close()

	// 重新打开后应追加而不是覆盖
	el, err = OpenErrorLog(path)
	if err != nil {
		t.Fatalf("重新打开错误日志失败: %v", err)
	}
	el.now = func() time.Time { return fixed }
	if err := el.Log("REQUEST ERROR for https://www.mdc.edu/slow"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	el.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := []string{
		"[2025-11-17T14:05:23] HTTP 404 for https://www.mdc.edu/missing",
		"[2025-11-17T14:05:23] REQUEST ERROR for https://www.mdc.edu/slow",
	}
	if len(lines) != len(want) {
		t.Fatalf("行数 = %d, 期望 %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("第%d行 = %q, 期望 %q", i+1, lines[i], want[i])
		}
	}
}
