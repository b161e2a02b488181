package milp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMixedModels is returned when a constraint references a variable of another model
	ErrMixedModels   = errors.New("elements are not part of the same model")
	ErrDuplicateName = errors.New("name already exists in the model")
)

type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

type Variable struct {
	model *Model
	index int
	name  string
	lb    float64
	ub    float64
	kind  VarKind
}

func (v *Variable) Index() int     { return v.index }
func (v *Variable) Name() string   { return v.name }
func (v *Variable) Lower() float64 { return v.lb }
func (v *Variable) Upper() float64 { return v.ub }
func (v *Variable) Kind() VarKind  { return v.kind }

func (v *Variable) String() string { return v.name }

type Term struct {
	Var   *Variable
	Coeff float64
}

// LinearExpr is a container for a linear expression
type LinearExpr struct {
	terms  []Term
	offset float64
}

func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// Add adds the variable with coefficient 1 to the LinearExpr and returns itself
func (l *LinearExpr) Add(v *Variable) *LinearExpr {
	return l.AddTerm(v, 1)
}

// Sub adds the variable with coefficient -1 to the LinearExpr and returns itself
func (l *LinearExpr) Sub(v *Variable) *LinearExpr {
	return l.AddTerm(v, -1)
}

// AddTerm adds the variable with the given coefficient to the LinearExpr and returns itself
func (l *LinearExpr) AddTerm(v *Variable, coeff float64) *LinearExpr {
	l.terms = append(l.terms, Term{Var: v, Coeff: coeff})
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// Clone returns an independent copy of the expression
func (l *LinearExpr) Clone() *LinearExpr {
	return &LinearExpr{terms: append([]Term(nil), l.terms...), offset: l.offset}
}

func (l *LinearExpr) Terms() []Term   { return append([]Term(nil), l.terms...) }
func (l *LinearExpr) Offset() float64 { return l.offset }

type Sense int

const (
	LessOrEqual Sense = iota
	GreaterOrEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("sense(%d)", int(s))
	}
}

// Constraint is a named linear row: sum(terms) sense rhs. Terms are merged per variable and constants are folded into rhs
type Constraint struct {
	index int
	name  string
	terms []Term
	sense Sense
	rhs   float64
}

func (c *Constraint) Index() int     { return c.index }
func (c *Constraint) Name() string   { return c.name }
func (c *Constraint) Terms() []Term  { return append([]Term(nil), c.terms...) }
func (c *Constraint) Sense() Sense   { return c.sense }
func (c *Constraint) Rhs() float64   { return c.rhs }
func (c *Constraint) String() string { return fmt.Sprintf("%v: %v %v %v", c.name, formatTerms(c.terms), c.sense, c.rhs) }
func (c *Constraint) Coefficient(v *Variable) float64 {
	for _, term := range c.terms {
		if term.Var == v {
			return term.Coeff
		}
	}
	return 0
}

// Model is a feasibility-only mixed-integer linear model: there is no objective
type Model struct {
	name        string
	variables   []*Variable
	constraints []*Constraint
	varNames    map[string]*Variable
	consNames   map[string]*Constraint
}

func NewModel(name string) *Model {
	return &Model{
		name:      name,
		varNames:  make(map[string]*Variable),
		consNames: make(map[string]*Constraint),
	}
}

func (m *Model) Name() string { return m.name }

// MakeVar creates a bounded continuous variable. An error is returned if the name already exists
func (m *Model) MakeVar(lb, ub float64, name string) (*Variable, error) {
	return m.makeVar(lb, ub, Continuous, name)
}

// MakeBoolVar creates a binary variable. An error is returned if the name already exists
func (m *Model) MakeBoolVar(name string) (*Variable, error) {
	return m.makeVar(0, 1, Binary, name)
}

func (m *Model) makeVar(lb, ub float64, kind VarKind, name string) (*Variable, error) {
	if name == "" {
		name = fmt.Sprintf("v%d", len(m.variables))
	}
	if _, ok := m.varNames[name]; ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrDuplicateName)
	} else if math.IsNaN(lb) || math.IsNaN(ub) || lb > ub {
		return nil, fmt.Errorf("variable %q has invalid bounds [%v, %v]", name, lb, ub)
	}

	v := &Variable{model: m, index: len(m.variables), name: name, lb: lb, ub: ub, kind: kind}
	m.variables = append(m.variables, v)
	m.varNames[name] = v
	return v, nil
}

// AddConstraint adds "expr sense rhs" to the model. An error is returned if the name already exists or a variable belongs to another model
func (m *Model) AddConstraint(expr *LinearExpr, sense Sense, rhs float64, name string) (*Constraint, error) {
	if name == "" {
		name = fmt.Sprintf("c%d", len(m.constraints))
	}
	if _, ok := m.consNames[name]; ok {
		return nil, fmt.Errorf("constraint %q: %w", name, ErrDuplicateName)
	}

	terms := make([]Term, 0, len(expr.terms))
	positions := make(map[*Variable]int)
	for _, term := range expr.terms {
		if term.Var == nil || term.Var.model != m {
			return nil, fmt.Errorf("constraint %q: %w", name, ErrMixedModels)
		}
		if position, ok := positions[term.Var]; ok {
			terms[position].Coeff += term.Coeff
			continue
		}
		positions[term.Var] = len(terms)
		terms = append(terms, term)
	}

	// Drop cancelled terms while keeping the first-seen order of the rest
	merged := terms[:0]
	for _, term := range terms {
		if term.Coeff != 0 {
			merged = append(merged, term)
		}
	}

	constraint := &Constraint{
		index: len(m.constraints),
		name:  name,
		terms: merged,
		sense: sense,
		rhs:   rhs - expr.offset,
	}
	m.constraints = append(m.constraints, constraint)
	m.consNames[name] = constraint
	return constraint, nil
}

func (m *Model) Variables() []*Variable     { return append([]*Variable(nil), m.variables...) }
func (m *Model) Constraints() []*Constraint { return append([]*Constraint(nil), m.constraints...) }
func (m *Model) NumVariables() int          { return len(m.variables) }
func (m *Model) NumConstraints() int        { return len(m.constraints) }

func (m *Model) hasBinaries() bool {
	for _, v := range m.variables {
		if v.kind == Binary {
			return true
		}
	}
	return false
}

// LookupVar returns the variable with the given name, or nil if not found
func (m *Model) LookupVar(name string) *Variable { return m.varNames[name] }

// LookupConstraint returns the constraint with the given name, or nil if not found
func (m *Model) LookupConstraint(name string) *Constraint { return m.consNames[name] }

// Range returns the minimum and maximum values the expression can take over the variables' domains
func (m *Model) Range(expr *LinearExpr) (min, max float64) {
	min, max = expr.offset, expr.offset
	for _, term := range expr.terms {
		low, high := term.Coeff*term.Var.lb, term.Coeff*term.Var.ub
		if low > high {
			low, high = high, low
		}
		min += low
		max += high
	}
	return min, max
}

// Solution holds a value per model variable, indexed by Variable.Index
type Solution []float64

func (s Solution) Value(v *Variable) float64 {
	if v.index >= len(s) {
		return 0
	}
	return s[v.index]
}

// Activity evaluates the constraint's left-hand side
func (s Solution) Activity(c *Constraint) float64 {
	var activity float64
	for _, term := range c.terms {
		activity += term.Coeff * s.Value(term.Var)
	}
	return activity
}

type Violation struct {
	Name     string
	Activity float64
	Sense    Sense
	Bound    float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%v: %v %v %v does not hold", v.Name, v.Activity, v.Sense, v.Bound)
}

// Violations lists every variable domain and constraint that the solution breaks by more than tolerance
func (m *Model) Violations(solution Solution, tolerance float64) []Violation {
	violations := make([]Violation, 0)
	for _, v := range m.variables {
		value := solution.Value(v)
		if value < v.lb-tolerance {
			violations = append(violations, Violation{Name: v.name, Activity: value, Sense: GreaterOrEqual, Bound: v.lb})
		} else if value > v.ub+tolerance {
			violations = append(violations, Violation{Name: v.name, Activity: value, Sense: LessOrEqual, Bound: v.ub})
		} else if v.kind == Binary && math.Abs(value-math.Round(value)) > tolerance {
			violations = append(violations, Violation{Name: v.name, Activity: value, Sense: Equal, Bound: math.Round(value)})
		}
	}

	for _, c := range m.constraints {
		activity := solution.Activity(c)
		holds := true
		switch c.sense {
		case LessOrEqual:
			holds = activity <= c.rhs+tolerance
		case GreaterOrEqual:
			holds = activity >= c.rhs-tolerance
		case Equal:
			holds = math.Abs(activity-c.rhs) <= tolerance
		}
		if !holds {
			violations = append(violations, Violation{Name: c.name, Activity: activity, Sense: c.sense, Bound: c.rhs})
		}
	}
	return violations
}

func formatTerms(terms []Term) string {
	if len(terms) == 0 {
		return "0"
	}
	str := ""
	for i, term := range terms {
		coeff := term.Coeff
		if i > 0 {
			if coeff < 0 {
				str += " - "
				coeff = -coeff
			} else {
				str += " + "
			}
		}
		if coeff == 1 {
			str += term.Var.name
		} else if coeff == -1 && i == 0 {
			str += "-" + term.Var.name
		} else {
			str += formatNumber(coeff) + " " + term.Var.name
		}
	}
	return str
}
