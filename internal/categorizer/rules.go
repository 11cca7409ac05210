package categorizer

import (
	"fmt"
	"regexp"
)

// UncategorizedCategory 无规则命中时的兜底分类
const UncategorizedCategory = "Other/Uncategorized"

// RuleKind 规则匹配对象
type RuleKind int

const (
	// KindHost 匹配小写主机名
	KindHost RuleKind = iota
	// KindPath 匹配小写路径,仅对主站及其子域生效
	KindPath
	// KindKeyword 在完整URL文本中搜索
	KindKeyword
	// KindPDF 仅对PDF生效的文件名/路径提示
	KindPDF
)

// String 返回规则类型名称
func (k RuleKind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindPath:
		return "path"
	case KindKeyword:
		return "keyword"
	case KindPDF:
		return "pdf"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rule 一条分类规则: (匹配器, 分类, 基础分, 理由标签)
type Rule struct {
	Pattern    string  `mapstructure:"pattern" json:"pattern"`
	Category   string  `mapstructure:"category" json:"category"`
	Score      float64 `mapstructure:"score" json:"score"`
	Reason     string  `mapstructure:"reason" json:"reason,omitempty"`
	IgnoreCase bool    `mapstructure:"ignore_case" json:"ignore_case,omitempty"`

	rx *regexp.Regexp
}

// Tag 返回理由标签,关键字规则未显式给出时取 "kw:"+模式前20个字符(按rune截取)
func (r *Rule) Tag() string {
	if r.Reason != "" {
		return r.Reason
	}
	p := []rune(r.Pattern)
	if len(p) > 20 {
		p = p[:20]
	}
	return "kw:" + string(p)
}

func (r *Rule) compile() error {
	expr := r.Pattern
	if r.IgnoreCase {
		expr = "(?i)" + expr
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("规则 %q 正则无效: %w", r.Pattern, err)
	}
	r.rx = rx
	return nil
}

// RuleSet 注入分类器的全部规则表
// 表内顺序只影响理由拼接顺序和非优先分类的平局裁决
type RuleSet struct {
	Host    []Rule `mapstructure:"host_rules"`
	Path    []Rule `mapstructure:"path_rules"`
	Keyword []Rule `mapstructure:"keyword_rules"`
	PDF     []Rule `mapstructure:"pdf_rules"`

	PriorityCategories []string `mapstructure:"priority_categories"`
	OtherCategories    []string `mapstructure:"other_categories"`

	priority map[string]bool
	compiled bool
}

// Compile 编译全部正则并校验分值范围
func (rs *RuleSet) Compile() error {
	tables := []struct {
		kind  RuleKind
		rules []Rule
	}{
		{KindHost, rs.Host},
		{KindPath, rs.Path},
		{KindKeyword, rs.Keyword},
		{KindPDF, rs.PDF},
	}
	for _, tbl := range tables {
		for i := range tbl.rules {
			r := &tbl.rules[i]
			if r.Category == "" {
				return fmt.Errorf("%s规则 #%d 缺少分类", tbl.kind, i+1)
			}
			if r.Score < 0 || r.Score > 1 {
				return fmt.Errorf("%s规则 #%d 分值 %.2f 超出 [0,1]", tbl.kind, i+1, r.Score)
			}
			if tbl.kind != KindKeyword && r.Reason == "" {
				return fmt.Errorf("%s规则 #%d 缺少理由标签", tbl.kind, i+1)
			}
			if err := r.compile(); err != nil {
				return err
			}
		}
	}

	rs.priority = make(map[string]bool, len(rs.PriorityCategories))
	for _, c := range rs.PriorityCategories {
		rs.priority[c] = true
	}
	rs.compiled = true
	return nil
}

// IsPriority 判断分类是否属于优先(MVP)集合
func (rs *RuleSet) IsPriority(category string) bool {
	return rs.priority[category]
}

// Categories 返回全部已声明分类(优先分类在前)
func (rs *RuleSet) Categories() []string {
	out := make([]string, 0, len(rs.PriorityCategories)+len(rs.OtherCategories))
	out = append(out, rs.PriorityCategories...)
	out = append(out, rs.OtherCategories...)
	return out
}

// campusSlug 校区路径片段
const campusSlug = `(hialeah|homestead|kendall|medical|north|padron|west|wolfson|meek|gibson)`

// programSlug 不在 /academics/ 下的顶层专业页面
const programSlug = `^/(aviation|aviationmaintenance|flightinstructor|professionalpilot|commercialtransportpilot|` +
	`emt|ems|paramedic|firefighter|lawenforcementbrt|privateinvestigatorintern|criminaljustice(bs|technology)?|justice|` +
	`nursing|bsn|medical(laboratorysciences|technology)?|healthinformation|healthservicesas|histotechnology(bas)?|` +
	`steriletech|dental(-|)?hygiene|sonography|respiratorycare|surgicaltechnology|veterinarytechnology|opticianry|` +
	`pharmacytechnician|phlebotomy|ct|mri|massagetherapy|medicalcoderbiller|physicaltherapistassistant|` +
	`architecture(-interior-design)?|makerslab|magic|cloudcomputingcenter|bitcenter|cybersecurity(bs)?|softwareengineering|` +
	`dataanalytics|electronicsengineeringbs|information(systemsnetworking|systemsnetworking)?|computerinformationtechnology|` +
	`business(administration|administrationas)?|accountingmanagement|marketing|digitalmarketing(bas)?|` +
	`supplychain(management|analytics)|procurement-management|project-management|entrepreneurship|psychology|` +
	`education|scienceeducation|earlychildhood.*|secondary(math|biology)|readingendorsement|biotechnology|biopharmaceutical|` +
	`culinary|hospitality(-institute|management)?|fashion|taxspecialist|neuroscience` +
	`)(/|$)`

// DefaultRuleSet 返回 mdc.edu 的默认规则表(已编译)
func DefaultRuleSet() *RuleSet {
	rs := &RuleSet{
		PriorityCategories: []string{
			"Admissions & Getting Started",
			"Advising & Registration",
			"Testing & Placement",
			"Costs & Payments",
			"Financial Aid & Scholarships",
			"Programs, Degrees & Catalog",
			"Student Resources & Support",
			"Library & Research",
			"Career Services (MDC WORKS)",
			"Continuing Education (non-credit)",
			"MDC Online",
			"International Students",
			"Veterans & Military",
			"Campuses & Locations",
		},
		OtherCategories: []string{
			"News & Press",
			"Events & Calendar",
			"Foundation & Alumni",
			"Policies & Procedures",
			"Public Safety & Emergency",
			"Portals & Systems",
			UncategorizedCategory,
		},
		Host: []Rule{
			{Pattern: `^calendar\.mdc\.edu$`, Category: "Events & Calendar", Score: 1.0, Reason: "host:calendar"},
			{Pattern: `^eventhub\.sharkevents\.mdc\.edu$`, Category: "Events & Calendar", Score: 1.0, Reason: "host:eventhub"},
			{Pattern: `^news\.mdc\.edu$`, Category: "News & Press", Score: 1.0, Reason: "host:news"},
			{Pattern: `^libraryguides\.mdc\.edu$`, Category: "Library & Research", Score: 1.0, Reason: "host:libraryguides"},
			{Pattern: `^faq\.mdc\.edu$`, Category: "Student Resources & Support", Score: 0.95, Reason: "host:faq"},
			{Pattern: `^ce\.mdc\.edu$`, Category: "Continuing Education (non-credit)", Score: 1.0, Reason: "host:ce"},
			{Pattern: `^online\.mdc\.edu$`, Category: "MDC Online", Score: 1.0, Reason: "host:online"},
			{Pattern: `^foundation\.mdc\.edu$`, Category: "Foundation & Alumni", Score: 1.0, Reason: "host:foundation"},
			{Pattern: `^mdconnect\.mdc\.edu$`, Category: "Portals & Systems", Score: 1.0, Reason: "host:mdconnect"},
			{Pattern: `^findclasses\.mdc\.edu$`, Category: "Portals & Systems", Score: 1.0, Reason: "host:findclasses"},
			{Pattern: `^cs\.mdc\.edu$`, Category: "Portals & Systems", Score: 1.0, Reason: "host:cs"},
			{Pattern: `^my\.mdc\.edu$`, Category: "Portals & Systems", Score: 1.0, Reason: "host:my"},
			{Pattern: `^(mycourses|myoffice)\.mdc\.edu$`, Category: "Portals & Systems", Score: 1.0, Reason: "host:lms/office"},
			{Pattern: `^(support|owa|adfs|sharknet)\.mdc\.edu$`, Category: "Portals & Systems", Score: 1.0, Reason: "host:portal"},
			// 学术子域名
			{Pattern: `^(entec|scet|magic|nwsa)\.mdc\.edu$`, Category: "Programs, Degrees & Catalog", Score: 0.95, Reason: "host:academic-subdomain"},
		},
		Path: []Rule{
			// 校区
			{Pattern: `^/` + campusSlug + `(/|$)`, Category: "Campuses & Locations", Score: 0.95, Reason: "path:campus"},
			{Pattern: `^/(campus|campus-finder)(/|$)`, Category: "Campuses & Locations", Score: 0.9, Reason: "path:campusfinder"},

			{Pattern: `^/(future-students|admissions|admissions-info|apply|orientation)(/|$)`, Category: "Admissions & Getting Started", Score: 0.9, Reason: "path:admissions"},
			{Pattern: `^/(advisement|registration|navigate|transcripts|registrar|enroll|enrollment-verification)(/|$)`, Category: "Advising & Registration", Score: 0.9, Reason: "path:advising"},
			{Pattern: `^/(testing|aet|fcle|testing-criteria|testing/tests)(/|$)`, Category: "Testing & Placement", Score: 0.9, Reason: "path:testing"},
			{Pattern: `^/(student-financial-services|tuition|costs|payment-options|due-dates|refunds|wiretransfer|mdcconnect-update)(/|$)`, Category: "Costs & Payments", Score: 0.92, Reason: "path:costs"},
			{Pattern: `^/(financialaid|scholarships|financialliteracy|workstudy)(/|$)`, Category: "Financial Aid & Scholarships", Score: 0.92, Reason: "path:aid"},
			{Pattern: `^/(academics|catalog|academics/programs|bachelors|associate|certificate|general-education|programs)(/|$)`, Category: "Programs, Degrees & Catalog", Score: 0.92, Reason: "path:academics"},
			{Pattern: programSlug, Category: "Programs, Degrees & Catalog", Score: 0.88, Reason: "path:program-slug", IgnoreCase: true},
			{Pattern: `^/(learning-resources|libraries|libraryforms)(/|$)`, Category: "Library & Research", Score: 0.9, Reason: "path:library"},
			{Pattern: `^/mdcworks(/|$)`, Category: "Career Services (MDC WORKS)", Score: 0.9, Reason: "path:mdcworks"},
			{Pattern: `^/career-exploration(/|$)`, Category: "Career Services (MDC WORKS)", Score: 0.85, Reason: "path:career-exploration"},
			{Pattern: `^/ce(/|$)`, Category: "Continuing Education (non-credit)", Score: 0.9, Reason: "path:ce"},
			{Pattern: `^/online(/|$)`, Category: "MDC Online", Score: 0.86, Reason: "path:online"},
			{Pattern: `^/internationalstudents(/|$)`, Category: "International Students", Score: 0.95, Reason: "path:intl"},
			{Pattern: `^/veterans(/|$)`, Category: "Veterans & Military", Score: 0.95, Reason: "path:vets"},
			{Pattern: `^/(studentlife|student-wellness|singlestop|access|bookstore|pantry|kendallfitness|northfitness|wolfsonfitness|racquet-sports)(/|$)`, Category: "Student Resources & Support", Score: 0.9, Reason: "path:student-resources"},
			{Pattern: `^/(safety|preventsexualviolence|main/safety)(/|$)`, Category: "Public Safety & Emergency", Score: 0.85, Reason: "path:safety"},
			{Pattern: `^/(policy|procedures|rightsandresponsibilities)(/|$)`, Category: "Policies & Procedures", Score: 0.86, Reason: "path:policy"},
			{Pattern: `^/(collegeforum|news)(/|$)`, Category: "News & Press", Score: 0.8, Reason: "path:news"},
			{Pattern: `^/livestream(/|$)`, Category: "Events & Calendar", Score: 0.6, Reason: "path:livestream"},

			// 旧版 /main 目录结构
			{Pattern: `^/main/(testing|assessments|pert|accuplacer)(/|$)`, Category: "Testing & Placement", Score: 0.88, Reason: "path:main-testing"},
			{Pattern: `^/main/financialaid(/|$)`, Category: "Financial Aid & Scholarships", Score: 0.88, Reason: "path:main-financialaid"},
			{Pattern: `^/main/safety(/|$)`, Category: "Public Safety & Emergency", Score: 0.88, Reason: "path:main-safety"},
			{Pattern: `^/main/library(/|$)`, Category: "Library & Research", Score: 0.88, Reason: "path:main-library"},
			{Pattern: `^/main/register(/|$)`, Category: "Advising & Registration", Score: 0.88, Reason: "path:main-register"},
			{Pattern: `^/main/bookstore(/|$)`, Category: "Student Resources & Support", Score: 0.86, Reason: "path:main-bookstore"},
		},
		// 低权重兜底信号
		Keyword: []Rule{
			{Pattern: `financial\s+aid|fafsa|scholarship`, Category: "Financial Aid & Scholarships", Score: 0.55, IgnoreCase: true},
			{Pattern: `tuition|fees|payment|refund|invoice`, Category: "Costs & Payments", Score: 0.55, IgnoreCase: true},
			{Pattern: `advis(e|ing)|registration|enroll|navigate|transcript`, Category: "Advising & Registration", Score: 0.55, IgnoreCase: true},
			{Pattern: `test|placement|exam|clep|pert|fcle`, Category: "Testing & Placement", Score: 0.55, IgnoreCase: true},
			{Pattern: `degree|program|certificate|catalog|curriculum`, Category: "Programs, Degrees & Catalog", Score: 0.55, IgnoreCase: true},
			{Pattern: `library|database|research|libguide`, Category: "Library & Research", Score: 0.55, IgnoreCase: true},
			{Pattern: `hialeah|homestead|kendall|medical|north|padron|west|wolfson|meek|gibson`, Category: "Campuses & Locations", Score: 0.52, IgnoreCase: true},
		},
		PDF: []Rule{
			{Pattern: `catalog|course(\s|-|_)?descriptions?`, Category: "Programs, Degrees & Catalog", Score: 0.75, Reason: "pdf:catalog", IgnoreCase: true},
			{Pattern: `policy|procedure|agreement|addendum`, Category: "Policies & Procedures", Score: 0.7, Reason: "pdf:policy", IgnoreCase: true},
			{Pattern: `transcript|reverse[-_ ]?transfer|ferpa`, Category: "Advising & Registration", Score: 0.65, Reason: "pdf:registrar", IgnoreCase: true},
			{Pattern: `scholarship|fafsa|financial[-_ ]?aid`, Category: "Financial Aid & Scholarships", Score: 0.7, Reason: "pdf:aid", IgnoreCase: true},
			{Pattern: `tuition|fee(s)?|financial[-_ ]obligation`, Category: "Costs & Payments", Score: 0.7, Reason: "pdf:costs", IgnoreCase: true},
			{Pattern: `pert|clep|fcle|accuplacer|test(score|ing)?`, Category: "Testing & Placement", Score: 0.7, Reason: "pdf:testing", IgnoreCase: true},
			{Pattern: `safety|emergency|crime|hazing`, Category: "Public Safety & Emergency", Score: 0.65, Reason: "pdf:safety", IgnoreCase: true},
			{Pattern: `library|research|database`, Category: "Library & Research", Score: 0.6, Reason: "pdf:library", IgnoreCase: true},
			// 新闻上传目录下的媒体资料、剪报
			{Pattern: `/wp-content/uploads/`, Category: "News & Press", Score: 0.9, Reason: "pdf:news-uploads", IgnoreCase: true},
		},
	}
	if err := rs.Compile(); err != nil {
		panic(fmt.Sprintf("默认规则表无效: %v", err))
	}
	return rs
}
