package utils

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestReadURLsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# 注释行\nhttps://www.mdc.edu/\n\n  https://www.mdc.edu/about/  \nnot-a-url\nftp://example.com/\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	want := []string{"https://www.mdc.edu/", "https://www.mdc.edu/about/"}
	if len(urls) != len(want) {
		t.Fatalf("URL数 = %d, 期望 %d: %v", len(urls), len(want), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, 期望 %q", i, urls[i], want[i])
		}
	}
}

func TestWriteAndReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lines.txt")
	lines := []string{"https://www.mdc.edu/a", "https://www.mdc.edu/b.pdf"}

	if err := WriteLines(path, lines); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	got, err := ReadLines(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(got) != len(lines) || got[0] != lines[0] || got[1] != lines[1] {
		t.Errorf("ReadLines = %v, 期望 %v", got, lines)
	}
	if !FileExists(path) {
		t.Errorf("FileExists 应返回 true")
	}
	if FileExists(filepath.Join(t.TempDir(), "missing.txt")) {
		t.Errorf("不存在的文件 FileExists 应返回 false")
	}
}

func TestValidateHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		wantErr bool
	}{
		{"合法头部", http.Header{"User-Agent": {"MDC-Student-Crawler/1.0"}}, false},
		{"禁止的头部", http.Header{"Host": {"www.mdc.edu"}}, true},
		{"非法名称", http.Header{"X Bad": {"v"}}, true},
		{"非法值", http.Header{"X-Test": {"a\nb"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeaders(tt.headers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHeaders() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRedactHeaders(t *testing.T) {
	headers := http.Header{
		"Authorization": {"Bearer abcdef123456"},
		"X-Api-Key":     {"1234567890abcdef"},
		"Cookie":        {"a=1"},
		"Accept":        {"text/html"},
	}
	got := RedactHeaders(headers)

	want := map[string]string{
		"Authorization": "Bearer ***",
		"X-Api-Key":     "1234***cdef",
		"Cookie":        "***",
		"Accept":        "text/html",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, 期望 %q", k, got[k], v)
		}
	}
}

func TestSortedCounts(t *testing.T) {
	got := SortedCounts(map[string]int{"Admissions": 2, "Academics/Programs": 5, "Athletics": 2})
	want := []string{"Academics/Programs", "Admissions", "Athletics"}
	for i, c := range got {
		if c.Category != want[i] {
			t.Errorf("第%d项 = %s, 期望 %s", i, c.Category, want[i])
		}
	}
}
