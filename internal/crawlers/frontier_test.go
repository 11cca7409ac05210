package crawlers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFrontierFIFOAndDedup(t *testing.T) {
	f := NewFrontier()
	ctx := context.Background()

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"首次入队", "https://www.mdc.edu/a", true},
		{"第二个URL", "https://www.mdc.edu/b", true},
		{"片段不同视为同一URL", "https://www.mdc.edu/a#top", false},
		{"已在队列中", "https://www.mdc.edu/b", false},
		{"空URL", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Push(tt.url); got != tt.want {
				t.Errorf("Push(%q) = %v, 期望 %v", tt.url, got, tt.want)
			}
		})
	}

	first, ok := f.Pop(ctx)
	if !ok || first != "https://www.mdc.edu/a" {
		t.Fatalf("第一个出队 = %q, %v", first, ok)
	}
	if !f.MarkVisited(first) {
		t.Fatalf("首次MarkVisited应返回true")
	}
	f.Done(first)

	if f.Push("https://www.mdc.edu/a#again") {
		t.Errorf("已访问的URL不应再次入队")
	}

	second, ok := f.Pop(ctx)
	if !ok || second != "https://www.mdc.edu/b" {
		t.Fatalf("第二个出队 = %q, %v", second, ok)
	}
	f.Done(second)

	if _, ok := f.Pop(ctx); ok {
		t.Errorf("队列耗尽后Pop应返回false")
	}
}

func TestFrontierMarkVisitedIsAtomic(t *testing.T) {
	f := NewFrontier()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.MarkVisited("https://www.mdc.edu/same#frag") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("MarkVisited 成功次数 = %d, 期望 1", wins)
	}
	if !f.IsVisited("https://www.mdc.edu/same") {
		t.Errorf("IsVisited 应返回true")
	}
}

func TestFrontierPopWaitsForInFlight(t *testing.T) {
	f := NewFrontier()
	ctx := context.Background()
	f.Push("https://www.mdc.edu/")

	first, _ := f.Pop(ctx)

	got := make(chan string, 1)
	go func() {
		u, ok := f.Pop(ctx)
		if !ok {
			u = ""
		}
		got <- u
	}()

	select {
	case u := <-got:
		t.Fatalf("有处理中URL时Pop不应立即返回, 得到 %q", u)
	case <-time.After(50 * time.Millisecond):
	}

	// 处理中的页面发现了新链接
	f.Push("https://www.mdc.edu/next")
	select {
	case u := <-got:
		if u != "https://www.mdc.edu/next" {
			t.Fatalf("Pop = %q", u)
		}
	case <-time.After(time.Second):
		t.Fatal("Push后等待中的Pop应被唤醒")
	}

	f.Done(first)
	f.Done("https://www.mdc.edu/next")
	if _, ok := f.Pop(ctx); ok {
		t.Errorf("全部处理完后Pop应返回false")
	}
}

func TestFrontierCloseAndCancelUnblock(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *Frontier, cancel context.CancelFunc)
	}{
		{"Close", func(f *Frontier, _ context.CancelFunc) { f.Close() }},
		{"ctx取消", func(_ *Frontier, cancel context.CancelFunc) { cancel() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrontier()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			f.Push("https://www.mdc.edu/")
			f.Pop(ctx) // 保持一个处理中的URL,使后续Pop阻塞

			done := make(chan bool, 1)
			go func() {
				_, ok := f.Pop(ctx)
				done <- ok
			}()
			time.Sleep(20 * time.Millisecond)
			tt.setup(f, cancel)

			select {
			case ok := <-done:
				if ok {
					t.Errorf("Pop 应返回false")
				}
			case <-time.After(time.Second):
				t.Fatal("Pop 未被唤醒")
			}
		})
	}
}

func TestFrontierSnapshotAndRequeue(t *testing.T) {
	f := NewFrontier()
	ctx := context.Background()
	f.Push("https://www.mdc.edu/a")
	f.Push("https://www.mdc.edu/b")
	f.Push("https://www.mdc.edu/c")

	a, _ := f.Pop(ctx)
	f.MarkVisited(a)
	f.Done(a)

	b, _ := f.Pop(ctx)
	f.MarkVisited(b)

	// b处理中: 快照中视为未访问,排在待处理最前面
	visited, pending := f.Snapshot()
	if len(visited) != 1 || visited[0] != a {
		t.Errorf("visited = %v", visited)
	}
	if len(pending) != 2 || pending[0] != b || pending[1] != "https://www.mdc.edu/c" {
		t.Errorf("pending = %v", pending)
	}

	// 中断后放回队首
	f.Requeue(b)
	f.Done(b)
	if f.IsVisited(b) {
		t.Errorf("Requeue 后不应处于已访问状态")
	}
	next, _ := f.Pop(ctx)
	if next != b {
		t.Errorf("Requeue 的URL应最先出队, 得到 %q", next)
	}

	restored := NewFrontier()
	restored.Restore(visited, pending)
	if !restored.IsVisited(a) || restored.Len() != 2 {
		t.Errorf("Restore 结果不正确: visited(a)=%v len=%d", restored.IsVisited(a), restored.Len())
	}
}
