package crawlers

import (
	"context"
	"sort"
	"sync"

	"github.com/RecoveryAshes/mdcharvest/internal/models"
)

// Frontier 待爬队列 + 已访问集合
// 职责: FIFO顺序出队,已访问集合的测试并标记是原子的,
// 并记录正在处理的URL数量以判断队列是否真正耗尽
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// 待处理队列(head之前的元素已出队)
	queue []string
	head  int

	// 已在队列中的URL,避免同一链接被重复入队
	queued map[string]struct{}

	// 已访问集合(含被过滤、失败的URL)
	visited map[string]struct{}

	// 已出队但尚未调用Done的URL
	inFlight map[string]struct{}

	closed bool
}

// NewFrontier 创建Frontier
func NewFrontier() *Frontier {
	f := &Frontier{
		queued:   make(map[string]struct{}),
		visited:  make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push 将URL(去片段后)追加到队尾
// 已访问、已在队列中或正在处理的URL不入队,返回false
func (f *Frontier) Push(rawURL string) bool {
	u := models.StripFragment(rawURL)
	if u == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.queued[u]; ok {
		return false
	}
	if _, ok := f.inFlight[u]; ok {
		return false
	}
	f.queue = append(f.queue, u)
	f.queued[u] = struct{}{}
	f.cond.Signal()
	return true
}

// Pop 取出队首URL
// 队列为空但仍有URL在处理时阻塞等待(处理中的页面可能发现新链接);
// 队列为空且无处理中URL、Frontier已关闭或ctx取消时返回false
// 每次成功Pop都必须配对调用Done
func (f *Frontier) Pop(ctx context.Context) (string, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed || ctx.Err() != nil {
			return "", false
		}
		if f.head < len(f.queue) {
			u := f.queue[f.head]
			f.queue[f.head] = ""
			f.head++
			delete(f.queued, u)
			f.compact()
			f.inFlight[u] = struct{}{}
			return u, true
		}
		if len(f.inFlight) == 0 {
			// 真正耗尽,唤醒其他等待者让它们也退出
			f.cond.Broadcast()
			return "", false
		}
		f.cond.Wait()
	}
}

// compact 已出队部分过半时回收底层数组
func (f *Frontier) compact() {
	if f.head > 1024 && f.head*2 > len(f.queue) {
		f.queue = append([]string(nil), f.queue[f.head:]...)
		f.head = 0
	}
}

// Done 标记一个出队的URL处理完毕
func (f *Frontier) Done(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, u)
	if len(f.inFlight) == 0 {
		f.cond.Broadcast()
	}
}

// MarkVisited 测试并标记: URL此前未访问时标记并返回true
func (f *Frontier) MarkVisited(rawURL string) bool {
	u := models.StripFragment(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[u]; ok {
		return false
	}
	f.visited[u] = struct{}{}
	return true
}

// IsVisited 检查URL是否已访问
func (f *Frontier) IsVisited(rawURL string) bool {
	u := models.StripFragment(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[u]
	return ok
}

// Requeue 撤销一次被中断的处理: 移出已访问集合并放回队首
// 用于取消时仍在抓取的URL,保证检查点恢复后会重新抓取
func (f *Frontier) Requeue(rawURL string) {
	u := models.StripFragment(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.visited, u)
	if _, ok := f.queued[u]; ok {
		return
	}
	if f.head > 0 {
		f.head--
		f.queue[f.head] = u
	} else {
		f.queue = append([]string{u}, f.queue...)
	}
	f.queued[u] = struct{}{}
}

// Close 关闭Frontier,所有阻塞中的Pop立即返回false
// 关闭后仍可Push(用于检查点保留待处理URL)
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Len 返回待处理URL数量
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// VisitedCount 返回已访问URL数量
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// Snapshot 导出已访问集合和待处理队列(保持FIFO顺序)
// 处理中的URL视为未访问,放在待处理队列最前面
func (f *Frontier) Snapshot() (visited []string, pending []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	visited = make([]string, 0, len(f.visited))
	for u := range f.visited {
		if _, ok := f.inFlight[u]; ok {
			continue
		}
		visited = append(visited, u)
	}
	sort.Strings(visited)

	inFlight := make([]string, 0, len(f.inFlight))
	for u := range f.inFlight {
		inFlight = append(inFlight, u)
	}
	sort.Strings(inFlight)

	pending = make([]string, 0, len(inFlight)+len(f.queue)-f.head)
	pending = append(pending, inFlight...)
	pending = append(pending, f.queue[f.head:]...)
	return visited, pending
}

// Restore 从检查点恢复状态
func (f *Frontier) Restore(visited []string, pending []string) {
	for _, u := range visited {
		f.MarkVisited(u)
	}
	for _, u := range pending {
		f.Push(u)
	}
}
