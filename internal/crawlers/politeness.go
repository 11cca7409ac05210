package crawlers

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Politeness 单个worker的礼貌延迟
// 每次抓取尝试(无论成败)之后随机等待 [min, max],
// 所有worker另外共享一个令牌桶限速器,保证并发时对目标站点的总请求速率有上限
type Politeness struct {
	min     time.Duration
	max     time.Duration
	rng     *rand.Rand
	limiter *rate.Limiter
}

// NewSharedLimiter 创建所有worker共享的限速器
// maxRPS<=0 表示不限制总速率(仍保留每个worker的随机延迟)
func NewSharedLimiter(maxRPS float64) *rate.Limiter {
	if maxRPS <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(maxRPS), 1)
}

// NewPoliteness 创建礼貌延迟采样器,每个worker一个
func NewPoliteness(minDelay, maxDelay time.Duration, limiter *rate.Limiter, seed int64) *Politeness {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Politeness{
		min:     minDelay,
		max:     maxDelay,
		rng:     rand.New(rand.NewSource(seed)),
		limiter: limiter,
	}
}

// Delay 采样一次延迟
func (p *Politeness) Delay() time.Duration {
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.rng.Int63n(int64(span)+1))
}

// Acquire 在发出请求前从共享限速器获取令牌
func (p *Politeness) Acquire(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Wait 抓取尝试结束后等待一次随机延迟,ctx取消时提前返回
func (p *Politeness) Wait(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
