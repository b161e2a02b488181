package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// termsPerLine keeps rows well below the line-length limits of LP readers
const termsPerLine = 8

var reservedLPWords = map[string]bool{
	"st": true, "subject": true, "to": true, "end": true, "bound": true, "bounds": true,
	"free": true, "inf": true, "infinity": true, "bin": true, "binary": true, "binaries": true,
	"gen": true, "general": true, "generals": true, "int": true, "integer": true, "integers": true,
	"min": true, "minimize": true, "minimum": true, "max": true, "maximize": true, "maximum": true,
}

// LPNames is the mapping between model elements and the identifiers written in an LP file
type LPNames struct {
	Columns []string // Indexed by Variable.Index
	Rows    []string // Indexed by Constraint.Index
	columns map[string]int
}

// ColumnIndex returns the index of the variable written under the given LP identifier
func (names LPNames) ColumnIndex(name string) (int, bool) {
	index, ok := names.columns[name]
	return index, ok
}

// SolutionFromValues builds a solution from values keyed by LP identifier; unknown identifiers are ignored and missing ones default to zero
func (names LPNames) SolutionFromValues(values map[string]float64) Solution {
	solution := make(Solution, len(names.Columns))
	for name, value := range values {
		if index, ok := names.columns[name]; ok {
			solution[index] = value
		}
	}
	return solution
}

// LPNames derives LP-safe unique identifiers for every variable and constraint.
// Any character other than letters, digits and '_' is replaced by '_'
func (m *Model) LPNames() LPNames {
	names := LPNames{
		Columns: make([]string, len(m.variables)),
		Rows:    make([]string, len(m.constraints)),
		columns: make(map[string]int, len(m.variables)),
	}

	taken := make(map[string]bool)
	for i, v := range m.variables {
		names.Columns[i] = uniqueLPName(v.name, taken)
		names.columns[names.Columns[i]] = i
	}
	taken = make(map[string]bool)
	for i, c := range m.constraints {
		names.Rows[i] = uniqueLPName(c.name, taken)
	}
	return names
}

func uniqueLPName(name string, taken map[string]bool) string {
	sanitized := sanitizeLPName(name)
	candidate := sanitized
	for suffix := 1; taken[candidate]; suffix++ {
		candidate = sanitized + "_" + strconv.Itoa(suffix)
	}
	taken[candidate] = true
	return candidate
}

func sanitizeLPName(name string) string {
	var builder strings.Builder
	for _, r := range name {
		if r < 128 && (r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			builder.WriteRune(r)
		} else {
			builder.WriteByte('_')
		}
	}
	sanitized := strings.TrimRight(builder.String(), "_")
	if sanitized == "" || (sanitized[0] >= '0' && sanitized[0] <= '9') || reservedLPWords[strings.ToLower(sanitized)] {
		sanitized = "n_" + sanitized
	}
	return sanitized
}

// WriteLP writes the model in CPLEX LP format. The objective is a single zero term since the model is a feasibility problem
func (m *Model) WriteLP(w io.Writer) (LPNames, error) {
	names := m.LPNames()
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "\\ Problem: %v\n", sanitizeLPName(m.name))
	writer.WriteString("Minimize\n")
	if len(m.variables) > 0 {
		fmt.Fprintf(writer, " obj: 0 %v\n", names.Columns[0])
	} else {
		writer.WriteString(" obj:\n")
	}

	writer.WriteString("Subject To\n")
	for i, c := range m.constraints {
		fmt.Fprintf(writer, " %v:", names.Rows[i])
		if len(c.terms) == 0 && len(m.variables) > 0 {
			fmt.Fprintf(writer, " 0 %v", names.Columns[0])
		}
		for j, term := range c.terms {
			if j > 0 && j%termsPerLine == 0 {
				writer.WriteString("\n  ")
			}
			sign := " +"
			coeff := term.Coeff
			if coeff < 0 {
				sign = " -"
				coeff = -coeff
			} else if j == 0 {
				sign = "" // No leading sign on a positive first term
			}
			if coeff == 1 {
				fmt.Fprintf(writer, "%v %v", sign, names.Columns[term.Var.index])
			} else {
				fmt.Fprintf(writer, "%v %v %v", sign, formatNumber(coeff), names.Columns[term.Var.index])
			}
		}
		var sense string
		switch c.sense {
		case LessOrEqual:
			sense = "<="
		case GreaterOrEqual:
			sense = ">="
		default:
			sense = "="
		}
		fmt.Fprintf(writer, " %v %v\n", sense, formatNumber(c.rhs))
	}

	writer.WriteString("Bounds\n")
	for i, v := range m.variables {
		if v.kind == Binary {
			continue
		}
		switch {
		case math.IsInf(v.lb, -1) && math.IsInf(v.ub, 1):
			fmt.Fprintf(writer, " %v free\n", names.Columns[i])
		case v.lb == v.ub:
			fmt.Fprintf(writer, " %v = %v\n", names.Columns[i], formatNumber(v.lb))
		default:
			fmt.Fprintf(writer, " %v <= %v <= %v\n", formatNumber(v.lb), names.Columns[i], formatNumber(v.ub))
		}
	}

	binaries := make([]string, 0)
	for i, v := range m.variables {
		if v.kind == Binary {
			binaries = append(binaries, names.Columns[i])
		}
	}
	if len(binaries) > 0 {
		writer.WriteString("Binaries\n")
		for _, name := range binaries {
			fmt.Fprintf(writer, " %v\n", name)
		}
	}

	writer.WriteString("End\n")
	return names, writer.Flush()
}

func formatNumber(value float64) string {
	switch {
	case math.IsInf(value, 1):
		return "+inf"
	case math.IsInf(value, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}
