package crawlers

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/mdcharvest/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ExtractLinks 提取页面中所有 a[href] 的绝对URL(去片段,页内去重,保持文档顺序)
// 相对链接以重定向后的URL为基准,页面声明了 <base href> 时以它为准,
// 有意不以请求URL为基准: 重定向到目录形式(/x -> /x/)时请求URL会解析出错误的路径。
// 这里不做任何过滤,过滤在出队时统一进行
func ExtractLinks(page *Page) ([]string, error) {
	pageURL := page.FinalURL
	if pageURL == "" {
		pageURL = page.URL
	}

	reader, err := charset.NewReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return nil, &models.ParseError{URL: pageURL, Cause: err}
	}
	root, err := html.Parse(reader)
	if err != nil {
		return nil, &models.ParseError{URL: pageURL, Cause: err}
	}
	doc := goquery.NewDocumentFromNode(root)

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &models.ParseError{URL: pageURL, Cause: err}
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		abs.RawFragment = ""
		link := abs.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}
