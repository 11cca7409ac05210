package main

import (
	"reflect"
	"testing"
)

func TestValidateCrawlFlags(t *testing.T) {
	tests := []struct {
		name     string
		maxPages int
		workers  int
		delayMin float64
		delayMax float64
		timeout  int
		wantErr  bool
	}{
		{"全部沿用配置", 0, 0, -1, -1, 0, false},
		{"合法覆盖", 500, 4, 0.5, 1.0, 20, false},
		{"零延迟", 10, 1, 0, 0, 5, false},
		{"只覆盖上限", 10, 1, -1, 0.2, 5, false},
		{"负页面上限", -1, 1, -1, -1, 0, true},
		{"并发过大", 10, 65, -1, -1, 0, true},
		{"超时过大", 10, 1, -1, -1, 301, true},
		{"延迟下限大于上限", 10, 1, 2, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCrawlFlags(tt.maxPages, tt.workers, tt.delayMin, tt.delayMax, tt.timeout)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCrawlFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.mdc.edu/", "https://www.mdc.edu/"},
		{"www.mdc.edu/admissions", "https://www.mdc.edu/admissions"},
		{"http://mdc.edu", "http://mdc.edu"},
	}

	for _, tt := range tests {
		got, err := NormalizeURL(tt.input)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeSeeds(t *testing.T) {
	got, err := NormalizeSeeds([]string{"www.mdc.edu/", "https://mdc.edu/catalog"})
	if err != nil {
		t.Fatalf("NormalizeSeeds error: %v", err)
	}
	want := []string{"https://www.mdc.edu/", "https://mdc.edu/catalog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeSeeds = %v, want %v", got, want)
	}

	if _, err := NormalizeSeeds([]string{"mailto:admissions@mdc.edu"}); err == nil {
		t.Error("mailto种子应被拒绝")
	}

	empty, err := NormalizeSeeds(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("空种子列表 = %v, %v", empty, err)
	}
}
