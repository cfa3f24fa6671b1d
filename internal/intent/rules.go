package intent

import "regexp"

// rule is the lexical profile of one intent. Pattern words must all appear in
// the expanded token set; each matched pattern scores 2 and each keyword 1.
type rule struct {
	patterns [][]string
	keywords []string
}

var rules = map[Intent]rule{
	Arithmetic: {
		patterns: [][]string{{"kaç", "eder"}, {"ne", "eder"}, {"hesapla"}, {"topla"}, {"çarp"}, {"böl"}, {"çıkar"}},
		keywords: []string{"artı", "eksi", "çarpı", "bölü", "kere", "işlem"},
	},
	Statistics: {
		patterns: [][]string{{"ortalama", "maaş"}, {"ortalama", "satış"}, {"en", "yüksek"}, {"en", "düşük"}, {"standart", "sapma"}, {"medyan"}},
		keywords: []string{"ortalama", "medyan", "maksimum", "minimum", "istatistik", "std", "max", "min"},
	},
	Comparison: {
		patterns: [][]string{{"kaç", "kat"}, {"karşılaştır"}, {"hangisi", "daha"}, {"arasındaki", "fark"}},
		keywords: []string{"fark", "kıyasla", "misli", "kat", "mukayese"},
	},
	Percentage: {
		patterns: [][]string{{"yüzde", "kaç"}, {"artış", "oranı"}, {"büyüme", "oranı"}, {"azalış", "oranı"}, {"değişim", "oranı"}},
		keywords: []string{"yüzde", "oran", "artış", "büyüme", "azalış"},
	},
	DepartmentAnalysis: {
		patterns: [][]string{{"departman", "ortalama"}, {"departman", "maaş"}, {"departman", "karşılaştır"}},
		keywords: []string{"departman"},
	},
	EmployeeCount: {
		patterns: [][]string{{"kaç", "çalışan"}, {"çalışan", "sayı"}, {"toplam", "çalışan"}},
		keywords: []string{"sayı", "adet", "toplam", "aggregation"},
	},
	StoreQuery: {
		patterns: [][]string{{"mağaza"}, {"satış"}, {"ciro"}},
		keywords: []string{"şube", "performans"},
	},
	IndividualSalary: {
		patterns: [][]string{{"maaş", "çalışan"}, {"maaşı", "ne"}, {"ne", "kadar", "kazanıyor"}},
		keywords: []string{"maaşı", "kazanıyor"},
	},
	SalaryAnalysis: {
		patterns: [][]string{{"maaş", "analiz"}, {"maaş", "dağılım"}, {"maaş", "rapor"}},
		keywords: []string{"maaş", "ücret"},
	},
	ListAllEmployees: {
		patterns: [][]string{{"göster", "çalışan"}, {"tüm", "çalışan"}, {"herkesi", "göster"}},
		keywords: []string{"liste"},
	},
	CountDepartmentEmployees: {
		patterns: [][]string{{"kaç", "çalışan", "departman"}, {"departman", "çalışan", "sayı"}, {"kaç", "kişi", "departman"}},
		keywords: []string{"kişi"},
	},
	DataAnalysis: {
		patterns: [][]string{{"analiz", "et"}, {"analiz", "yap"}, {"rapor"}, {"değerlendir"}},
		keywords: []string{"analiz", "değerlendirme", "korelasyon", "anomali", "aykırı", "segment", "kapsamlı", "detaylı"},
	},
	TrendAnalysis: {
		patterns: [][]string{{"trend"}, {"geçen", "ay"}, {"geçen", "yıl"}, {"zaman", "göre"}},
		keywords: []string{"trend", "değişim", "dönem", "tahmin"},
	},
	Help: {
		patterns: [][]string{{"nasıl", "kullan"}, {"ne", "yapabilir"}, {"yardım"}, {"örnek"}},
		keywords: []string{"nasıl", "help", "açıkla", "anlamadım"},
	},
	WebSearch: {
		patterns: [][]string{{"internet"}, {"hava", "durumu"}, {"dolar", "kuru"}, {"google"}},
		keywords: []string{"web", "haber", "euro", "dolar", "hava"},
	},
	ContextSummary: {
		patterns: [][]string{{"özetle"}, {"hakkında", "bilgi"}},
		keywords: []string{"özet", "politika", "prosedür", "yönetmelik"},
	},
}

// DefaultWebTriggers decide between web search and context summary when
// nothing else scores.
var DefaultWebTriggers = []string{"internet", "google", "hava", "dolar", "euro", "web", "haber"}

type override struct {
	re     *regexp.Regexp
	intent Intent
	bonus  float64
}

// short idioms that keyword scoring under-weights
var overrides = []override{
	{regexp.MustCompile(`(kaç kat|misli).*maaş|maaş.*(kaç kat|misli)`), Comparison, 5},
	{regexp.MustCompile(`toplam .*sayı`), EmployeeCount, 5},
	{regexp.MustCompile(`departman.* ortalama|ortalama.*departman`), DepartmentAnalysis, 5},
}

const (
	patternWeight    = 2.0
	keywordWeight    = 1.0
	arithmeticBonus  = 1.5
	comparisonBonus  = 1.0
	entityBonus      = 2.0
	scoreScale       = 4.0
	learnedWeight    = 0.2
	preferenceBonus  = 0.1
	ClarifyThreshold = 0.3
)
