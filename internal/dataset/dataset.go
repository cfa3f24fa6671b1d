// Package dataset holds the read-only tabular data the engine answers
// questions against, plus the free-text documents used for retrieval.
package dataset

import (
	"sort"
	"strings"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
)

// Role is a semantic column role discovered from the header.
type Role string

const (
	RoleStore      Role = "store"
	RoleEmployee   Role = "employee"
	RoleDepartment Role = "department"
	RoleSalary     Role = "salary"
	RoleRevenue    Role = "revenue"
)

// AllRoles lists roles in discovery order.
var AllRoles = []Role{RoleStore, RoleEmployee, RoleDepartment, RoleSalary, RoleRevenue}

// Dataset is a named table. Rows are always padded to len(Columns).
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
	Roles   map[Role]string
}

// New builds a dataset, trimming headers, padding short rows and discovering
// column roles.
func New(name string, columns []string, rows [][]string) *Dataset {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}

	padded := make([][]string, 0, len(rows))
	for _, row := range rows {
		r := make([]string, len(cols))
		for i := range r {
			if i < len(row) {
				r[i] = strings.TrimSpace(row[i])
			}
		}
		padded = append(padded, r)
	}

	return &Dataset{
		Name:    name,
		Columns: cols,
		Rows:    padded,
		Roles:   DiscoverRoles(cols),
	}
}

// ColumnIndex returns the index of the named column (case-insensitive) or -1.
func (d *Dataset) ColumnIndex(name string) int {
	want := textnorm.Fold(strings.TrimSpace(name))
	for i, c := range d.Columns {
		if textnorm.Fold(c) == want {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column's values, or nil if it does not exist.
func (d *Dataset) Column(name string) []string {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// RoleColumn returns the column discovered for role.
func (d *Dataset) RoleColumn(role Role) (string, bool) {
	col, ok := d.Roles[role]
	return col, ok
}

// RoleValues returns the values of the role column, or nil.
func (d *Dataset) RoleValues(role Role) []string {
	col, ok := d.Roles[role]
	if !ok {
		return nil
	}
	return d.Column(col)
}

// Record returns row i as a column -> value map.
func (d *Dataset) Record(i int) map[string]string {
	rec := make(map[string]string, len(d.Columns))
	for j, c := range d.Columns {
		rec[c] = d.Rows[i][j]
	}
	return rec
}

// FindRow returns the first row whose role column equals value
// (case-insensitive, trimmed).
func (d *Dataset) FindRow(role Role, value string) (int, bool) {
	col, ok := d.Roles[role]
	if !ok {
		return -1, false
	}
	idx := d.ColumnIndex(col)
	want := textnorm.Fold(strings.TrimSpace(value))
	for i, row := range d.Rows {
		if textnorm.Fold(row[idx]) == want {
			return i, true
		}
	}
	return -1, false
}

var roleKeywords = map[Role][]string{
	RoleStore:      {"mağaza", "store", "şube"},
	RoleEmployee:   {"ad soyad", "çalışan", "personel", "employee", "isim", "name"},
	RoleDepartment: {"departman", "department", "birim", "bölüm"},
	RoleSalary:     {"maaş", "salary", "ücret"},
	RoleRevenue:    {"ciro", "satış", "sales", "revenue"},
}

// count-style headers such as "Çalışan Sayısı" never name an entity column
var countMarkers = []string{"sayı", "sayısı", "adet", "count"}

// DiscoverRoles maps roles to header names. Keywords are tried in priority
// order and the first matching header wins.
func DiscoverRoles(columns []string) map[Role]string {
	roles := make(map[Role]string)
	used := make(map[string]bool)

	for _, role := range AllRoles {
		for _, kw := range roleKeywords[role] {
			col := firstColumnContaining(columns, kw, used, role)
			if col != "" {
				roles[role] = col
				used[col] = true
				break
			}
		}
	}
	return roles
}

func firstColumnContaining(columns []string, kw string, used map[string]bool, role Role) string {
	for _, c := range columns {
		if used[c] {
			continue
		}
		folded := textnorm.Fold(c)
		if !strings.Contains(folded, kw) {
			continue
		}
		if (role == RoleStore || role == RoleEmployee) && textnorm.ContainsAny(folded, countMarkers...) {
			continue
		}
		return c
	}
	return ""
}

// Document is a free-text file loaded for retrieval.
type Document struct {
	Name string
	Text string
}

// Registry is the read-only set of loaded datasets and documents.
type Registry struct {
	datasets  []*Dataset
	byName    map[string]*Dataset
	documents []Document
}

// NewRegistry builds a registry. Datasets are kept sorted by name.
func NewRegistry(datasets []*Dataset, documents []Document) *Registry {
	sorted := append([]*Dataset(nil), datasets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	docs := append([]Document(nil), documents...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

	byName := make(map[string]*Dataset, len(sorted))
	for _, d := range sorted {
		byName[d.Name] = d
	}
	return &Registry{datasets: sorted, byName: byName, documents: docs}
}

// Datasets returns all datasets sorted by name.
func (r *Registry) Datasets() []*Dataset {
	if r == nil {
		return nil
	}
	return r.datasets
}

// Documents returns the loaded text documents.
func (r *Registry) Documents() []Document {
	if r == nil {
		return nil
	}
	return r.documents
}

// Get looks a dataset up by name.
func (r *Registry) Get(name string) (*Dataset, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.byName[name]
	return d, ok
}

// Empty reports whether nothing is loaded.
func (r *Registry) Empty() bool {
	return r == nil || (len(r.datasets) == 0 && len(r.documents) == 0)
}

// Names returns the distinct non-empty values of the role column across all
// datasets, in first-seen order. Duplicates are detected case-insensitively.
func (r *Registry) Names(role Role) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, d := range r.Datasets() {
		for _, v := range d.RoleValues(role) {
			key := textnorm.Fold(v)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// WithRole returns the datasets that have a column for role.
func (r *Registry) WithRole(role Role) []*Dataset {
	var out []*Dataset
	for _, d := range r.Datasets() {
		if _, ok := d.Roles[role]; ok {
			out = append(out, d)
		}
	}
	return out
}
