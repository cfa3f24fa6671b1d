package compute

import (
	"regexp"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// QueryType is the sub-problem a computational query maps to.
type QueryType int

const (
	QueryArithmetic QueryType = iota
	QueryRatio
	QueryDepartment
	QueryEmployeeCount
	QueryStatistics
	QueryPercentage
)

var queryTypeNames = map[QueryType]string{
	QueryArithmetic:    "arithmetic",
	QueryRatio:         "ratio",
	QueryDepartment:    "department_analysis",
	QueryEmployeeCount: "employee_count",
	QueryStatistics:    "statistics",
	QueryPercentage:    "percentage",
}

func (t QueryType) String() string {
	if s, ok := queryTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

type detectRule struct {
	typ   QueryType
	match func(folded string) bool
}

var (
	ratioRe        = regexp.MustCompile(`(kaç kat|misli).*maaş|maaş.*(kaç kat|misli)`)
	departmentRe   = regexp.MustCompile(`departman.*(ortalama|fark)|(ortalama|fark).*departman`)
	headcountRe    = regexp.MustCompile(`kaç (çalışan|personel|kişi)|(çalışan|personel) sayı|toplam (çalışan|personel)`)
	binaryExprRe   = regexp.MustCompile(`\d\s*[-+*/×÷]\s*\(?\s*\d`)
	calcWordRe     = regexp.MustCompile(`hesapla|kaç eder|ne eder|sonucu`)
	digitRe        = regexp.MustCompile(`\d`)
	statWordRe     = regexp.MustCompile(`ortalama|medyan|median|en yüksek|en düşük|en büyük|en küçük|maksimum|minimum|\bmax\b|\bmin\b|standart sapma|\bstd\b|toplam`)
	statSubjectRe  = regexp.MustCompile(`maaş|ücret|ciro|satış|gelir|salary|revenue`)
	percentWordRe  = regexp.MustCompile(`yüzde|%|artış|büyüme oranı|azalış|düşüş`)
	standaloneStat = regexp.MustCompile(`medyan|standart sapma|istatistik`)
)

// Rules are evaluated in order; the first match wins.
var detectRules = []detectRule{
	{QueryRatio, ratioRe.MatchString},
	{QueryDepartment, departmentRe.MatchString},
	{QueryEmployeeCount, headcountRe.MatchString},
	{QueryArithmetic, func(q string) bool {
		return binaryExprRe.MatchString(q) || (calcWordRe.MatchString(q) && digitRe.MatchString(q))
	}},
	{QueryStatistics, func(q string) bool {
		return (statWordRe.MatchString(q) && statSubjectRe.MatchString(q)) || standaloneStat.MatchString(q)
	}},
	{QueryPercentage, percentWordRe.MatchString},
}

// DetectQueryType maps a query onto its computation, defaulting to arithmetic.
func DetectQueryType(query string) QueryType {
	folded := textnorm.Fold(query)
	for _, r := range detectRules {
		if r.match(folded) {
			return r.typ
		}
	}
	return QueryArithmetic
}

// IsMathQuery reports whether the query is worth routing to the engine before
// intent dispatch: it names a computation explicitly or carries an expression.
func IsMathQuery(query string) bool {
	folded := textnorm.Fold(query)
	for _, r := range detectRules {
		if r.match(folded) {
			return true
		}
	}
	return false
}
