// Package crawlers 实现站内广度优先爬取
//
// # 核心组件
//
// ## Crawler
//
// 从种子URL开始,按FIFO顺序出队,出队时执行排除策略,抓取通过的URL,
// 从HTML页面挖掘链接追加到队尾. PDF页面计入结果但不挖掘链接.
// 停止条件: 队列耗尽(exhausted)、成功抓取数达到上限(budget)、ctx取消(cancelled).
//
//	fetcher := NewFetcher(FetcherConfig{Timeout: 20 * time.Second, RetryAttempts: 2}, headers)
//	crawler, err := NewCrawler(crawlCfg, exclusionCfg, fetcher, recorder)
//	run, err := crawler.Crawl(ctx, []string{"https://www.mdc.edu/"}, 20000)
//
// ## Frontier
//
// 待处理队列 + 已访问集合. MarkVisited 是测试并标记,多个worker同时发现同一链接时只会抓取一次.
// Pop 在队列为空但仍有URL处理中时阻塞,因为处理中的页面可能带来新链接.
//
// ## ExclusionPolicy
//
// 按固定顺序短路求值:
//  1. 临时跳过规则(登录、确认链接)
//  2. 已访问(由Frontier判断)
//  3. 协议不是 http/https
//  4. 主机不在允许的域名后缀内
//  5. 路径命中禁止前缀(以静态 robots.txt 规则表达,不抓取站点的 robots.txt)
//  6. 扩展名在跳过列表中
//
// 被过滤的URL不是错误,只记调试日志,不写错误日志.
//
// ## Fetcher
//
// 基于Colly. 非2xx响应直接失败; 网络错误和超时按固定次数、固定退避重试.
// 支持 gzip、deflate、br 压缩的响应体.
//
// ## Politeness
//
// 每个worker在每次抓取尝试后随机等待 [delay_min, delay_max];
// 所有worker共享一个令牌桶(max_rps),并发时总请求速率仍然有上限.
//
// # 配置示例 (configs/config.yaml)
//
//	crawl:
//	  workers: 1
//	  delay_min: 0.5
//	  delay_max: 1.0
//	  max_rps: 1.0
//	exclusion:
//	  allowed_domain_suffix: "mdc.edu"
//	  disallowed_path_prefixes: ["/newsandnotes/", "/trackback/"]
//
// # 并发安全
//
//   - Frontier: sync.Mutex + sync.Cond
//   - Crawler: 结果追加、统计和预算判断在同一把锁内完成,输出不会超过 maxPages
//   - Politeness: 每个worker独立,限速器共享
package crawlers
