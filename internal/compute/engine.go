package compute

import (
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
)

// Engine routes computational queries to their handler.
type Engine struct {
	aliases []Alias
}

// Option configures an Engine.
type Option func(*Engine)

// WithAliases appends department aliases. They are consulted before the
// built-in table.
func WithAliases(aliases []Alias) Option {
	return func(e *Engine) {
		e.aliases = append(append([]Alias(nil), aliases...), e.aliases...)
	}
}

// New creates an Engine with the default alias table.
func New(opts ...Option) *Engine {
	e := &Engine{aliases: append([]Alias(nil), DefaultAliases...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Aliases returns the effective department alias table.
func (e *Engine) Aliases() []Alias {
	return e.aliases
}

// Process detects the query type and runs the matching handler.
func (e *Engine) Process(query string, ents extract.Entities, reg *dataset.Registry) (Result, QueryType, error) {
	qt := DetectQueryType(query)
	res, err := e.Run(qt, query, ents, reg)
	return res, qt, err
}

// Run executes the handler for an already known query type.
func (e *Engine) Run(qt QueryType, query string, ents extract.Entities, reg *dataset.Registry) (Result, error) {
	switch qt {
	case QueryRatio:
		return Ratio(query, reg)
	case QueryDepartment:
		return DepartmentAggregate(query, reg, e.aliases)
	case QueryEmployeeCount:
		if dept, ok := ResolveDepartment(query, Departments(reg), e.aliases); ok && len(ents.Departments) > 0 {
			return DepartmentHeadcount(dept, reg)
		}
		return UniqueCount(reg)
	case QueryStatistics:
		return Statistics(query, reg)
	case QueryPercentage:
		return Percentage(query, ents)
	default:
		return Arithmetic(query, ents)
	}
}

// DepartmentAggregate runs the department comparison with the engine's aliases.
func (e *Engine) DepartmentAggregate(query string, reg *dataset.Registry) (Result, error) {
	return DepartmentAggregate(query, reg, e.aliases)
}

// ResolveDepartment resolves a department with the engine's aliases.
func (e *Engine) ResolveDepartment(query string, reg *dataset.Registry) (string, bool) {
	return ResolveDepartment(query, Departments(reg), e.aliases)
}
