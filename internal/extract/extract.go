// Package extract pulls structured entities out of a raw query: numbers,
// operators, named stores/employees/departments, operation categories and
// domain variables. Extraction never fails; empty results are empty slices.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Category tags the kind of math operation a query asks for.
type Category string

const (
	Calculation Category = "calculation"
	Statistics  Category = "statistics"
	Aggregation Category = "aggregation"
	Percentage  Category = "percentage"
	Comparison  Category = "comparison"
)

// Entities is the extraction result.
type Entities struct {
	Numbers     []float64  `json:"numbers"`
	Operators   []string   `json:"operators"`
	Stores      []string   `json:"stores"`
	Employees   []string   `json:"employees"`
	Departments []string   `json:"departments"`
	Categories  []Category `json:"categories"`
	Variables   []string   `json:"variables"`
}

// Empty returns an Entities value with every slice initialized.
func Empty() Entities {
	return Entities{
		Numbers:     []float64{},
		Operators:   []string{},
		Stores:      []string{},
		Employees:   []string{},
		Departments: []string{},
		Categories:  []Category{},
		Variables:   []string{},
	}
}

// Has reports whether category c was tagged.
func (e Entities) Has(c Category) bool {
	for _, x := range e.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// HasVariable reports whether the domain word v was mentioned.
func (e Entities) HasVariable(v string) bool {
	for _, x := range e.Variables {
		if x == v {
			return true
		}
	}
	return false
}

// Named returns every named entity, stores first.
func (e Entities) Named() []string {
	out := make([]string, 0, len(e.Stores)+len(e.Employees)+len(e.Departments))
	out = append(out, e.Stores...)
	out = append(out, e.Employees...)
	return append(out, e.Departments...)
}

// Dictionary is the registry of known names matched against queries.
type Dictionary struct {
	Stores      []string
	Employees   []string
	Departments []string
}

// DefaultDepartments is used when no dataset carries a department column.
var DefaultDepartments = []string{"Bilgi İşlem", "Muhasebe", "Yönetim", "Ürün Yönetimi", "İnsan Kaynakları", "Web"}

// DictionaryFrom collects the known names from a dataset registry.
func DictionaryFrom(reg *dataset.Registry) Dictionary {
	dict := Dictionary{
		Stores:      reg.Names(dataset.RoleStore),
		Employees:   reg.Names(dataset.RoleEmployee),
		Departments: reg.Names(dataset.RoleDepartment),
	}
	if len(dict.Departments) == 0 {
		dict.Departments = append([]string(nil), DefaultDepartments...)
	}
	return dict
}

const (
	// FuzzyThreshold is the minimum token-set ratio for a fuzzy name match.
	FuzzyThreshold = 0.80
	// fuzzy matching only runs on queries shorter than this many tokens
	fuzzyMaxTokens = 4
	minNameRunes   = 3
)

var (
	numberRe   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	operatorRe = regexp.MustCompile(`[+\-*/×÷]`)
)

type operatorWord struct {
	word   string
	symbol string
	// exact words only match whole tokens; the short ones are prefixes of
	// ordinary words ("artışı", "Kerem", "ekleme")
	exact bool
}

// checked in order; a token takes the first matching entry
var operatorWords = []operatorWord{
	{"topla", "+", false}, {"artı", "+", true},
	{"ekle", "+", true}, {"eklersek", "+", true}, {"eklersen", "+", true}, {"eklenirse", "+", true},
	{"çıkart", "-", false}, {"çıkar", "-", false}, {"eksi", "-", true},
	{"çarp", "*", false}, {"kere", "*", true},
	{"bölü", "/", true}, {"böl", "/", false}, {"paylaş", "/", false},
}

// nouns that share a prefix with an operator verb
var operatorStopwords = []string{"toplam", "toplantı", "bölüm", "bölge", "eklenti"}

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{Calculation, []string{"hesapla", "calculate", "kaç eder", "+", "-", "*", "/", "×", "÷", "çarp", "böl", "topla", "çıkar"}},
	{Statistics, []string{"ortalama", "average", "mean", "medyan", "median", "maksimum", "max", "minimum", "min",
		"standart sapma", "std", "varyans", "variance", "en yüksek", "en düşük"}},
	{Aggregation, []string{"toplam", "sum", "total", "sayı", "count", "adet"}},
	{Percentage, []string{"yüzde", "percent", "%", "oran", "rate", "artış", "büyüme", "azalış", "değişim"}},
	{Comparison, []string{"karşılaştır", "compare", "fark", "difference", "hangi daha", "en iyi", "en kötü", "kaç kat", "misli", "kıyasla"}},
}

// VariableWords are the domain words tracked in Entities.Variables.
var VariableWords = []string{"maaş", "ciro", "satış", "gelir", "gider", "kar", "zarar", "çalışan", "mağaza"}

// Extractor matches queries against a fixed name dictionary. It is safe for
// concurrent use.
type Extractor struct {
	dict  Dictionary
	names map[string][]nameEntry
}

type nameEntry struct {
	display string
	key     string
}

// New builds an extractor over dict.
func New(dict Dictionary) *Extractor {
	x := &Extractor{dict: dict, names: make(map[string][]nameEntry)}
	x.names["store"] = entries(dict.Stores)
	x.names["employee"] = entries(dict.Employees)
	x.names["department"] = entries(dict.Departments)
	return x
}

func entries(names []string) []nameEntry {
	out := make([]nameEntry, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		key := textnorm.Normalize(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, nameEntry{display: strings.TrimSpace(n), key: key})
	}
	return out
}

// Dictionary returns the names the extractor was built with.
func (x *Extractor) Dictionary() Dictionary {
	return x.dict
}

// Extract returns the entities found in query.
func (x *Extractor) Extract(query string) Entities {
	ent := Empty()
	folded := textnorm.Fold(query)
	normalized := textnorm.Normalize(query)
	tokens := textnorm.Tokens(query)

	ent.Numbers = ExtractNumbers(query)
	ent.Operators = ExtractOperators(query)

	ent.Stores = containedNames(normalized, x.names["store"], 0)
	ent.Employees = containedNames(normalized, x.names["employee"], minNameRunes)
	ent.Departments = containedNames(normalized, x.names["department"], 0)

	if len(tokens) < fuzzyMaxTokens && len(ent.Stores) == 0 && len(ent.Employees) == 0 {
		if kind, name, ok := x.fuzzyBest(normalized); ok {
			if kind == "store" {
				ent.Stores = append(ent.Stores, name)
			} else {
				ent.Employees = append(ent.Employees, name)
			}
		}
	}

	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if keywordPresent(folded, tokens, kw) {
				ent.Categories = append(ent.Categories, ck.category)
				break
			}
		}
	}

	for _, v := range VariableWords {
		if textnorm.HasWord(tokens, v) {
			ent.Variables = append(ent.Variables, v)
		}
	}

	return ent
}

// ExtractNumbers returns every decimal number in query, in order. A comma is
// accepted as the decimal separator.
func ExtractNumbers(query string) []float64 {
	out := []float64{}
	for _, m := range numberRe.FindAllString(query, -1) {
		f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

// ExtractOperators returns symbol operators in order of appearance followed
// by operators named in words.
func ExtractOperators(query string) []string {
	out := []string{}
	for _, m := range operatorRe.FindAllString(query, -1) {
		out = append(out, canonicalOperator(m))
	}

	for _, tok := range textnorm.Tokens(query) {
		if isOperatorStopword(tok) {
			continue
		}
		for _, ow := range operatorWords {
			if ow.matches(tok) {
				out = append(out, ow.symbol)
				break
			}
		}
	}
	return out
}

func (ow operatorWord) matches(tok string) bool {
	if ow.exact {
		return tok == ow.word
	}
	return strings.HasPrefix(tok, ow.word)
}

func canonicalOperator(s string) string {
	switch s {
	case "×":
		return "*"
	case "÷":
		return "/"
	}
	return s
}

func isOperatorStopword(tok string) bool {
	for _, s := range operatorStopwords {
		if strings.HasPrefix(tok, s) {
			return true
		}
	}
	return false
}

// keywordPresent matches symbol keywords against the folded raw text and
// word keywords against tokens.
func keywordPresent(folded string, tokens []string, kw string) bool {
	if operatorRe.MatchString(kw) || kw == "%" {
		return strings.Contains(folded, kw)
	}
	return textnorm.HasWord(tokens, kw)
}

func containedNames(normalized string, names []nameEntry, minRunes int) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, n := range names {
		if len([]rune(n.key)) < minRunes {
			continue
		}
		if pos := strings.Index(normalized, n.key); pos >= 0 {
			hits = append(hits, hit{n.display, pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

// fuzzyBest returns the single best employee or store name whose token-set
// ratio against the query reaches FuzzyThreshold. Earlier names win ties.
func (x *Extractor) fuzzyBest(normalized string) (kind, name string, ok bool) {
	if normalized == "" {
		return "", "", false
	}
	best := 0.0
	for _, k := range []string{"employee", "store"} {
		for _, n := range x.names[k] {
			score := textnorm.TokenSetRatio(normalized, n.key)
			if score > best {
				best, kind, name = score, k, n.display
			}
		}
	}
	if best < FuzzyThreshold {
		return "", "", false
	}
	return kind, name, true
}
