/*
Copyright © 2026 the gridsplit authors.
This file is part of gridsplit.

gridsplit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridsplit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridsplit.  If not, see <http://www.gnu.org/licenses/>.
*/

package splitutil

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/floats"
)

// outputFunctions are the functions available to output variable
// expressions.
var outputFunctions = map[string]govaluate.ExpressionFunction{
	"exp": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gridsplit: got %d arguments for function 'exp', but needs 1", len(arg))
		}
		x, err := cast.ToFloat64E(arg[0])
		if err != nil {
			return nil, fmt.Errorf("gridsplit: function 'exp': %v", err)
		}
		return math.Exp(x), nil
	},
	"log": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gridsplit: got %d arguments for function 'log', but needs 1", len(arg))
		}
		x, err := cast.ToFloat64E(arg[0])
		if err != nil {
			return nil, fmt.Errorf("gridsplit: function 'log': %v", err)
		}
		return math.Log(x), nil
	},
	"abs": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("gridsplit: got %d arguments for function 'abs', but needs 1", len(arg))
		}
		x, err := cast.ToFloat64E(arg[0])
		if err != nil {
			return nil, fmt.Errorf("gridsplit: function 'abs': %v", err)
		}
		return math.Abs(x), nil
	},
	"min": func(arg ...interface{}) (interface{}, error) {
		x, err := floatArgs("min", arg)
		if err != nil {
			return nil, err
		}
		return floats.Min(x), nil
	},
	"max": func(arg ...interface{}) (interface{}, error) {
		x, err := floatArgs("max", arg)
		if err != nil {
			return nil, err
		}
		return floats.Max(x), nil
	},
	"sum": func(arg ...interface{}) (interface{}, error) {
		x, err := floatArgs("sum", arg)
		if err != nil {
			return nil, err
		}
		return floats.Sum(x), nil
	},
}

// floatArgs converts the arguments of function fn to floats. There must
// be at least one.
func floatArgs(fn string, arg []interface{}) ([]float64, error) {
	if len(arg) == 0 {
		return nil, fmt.Errorf("gridsplit: got 0 arguments for function '%s', but needs at least 1", fn)
	}
	x := make([]float64, len(arg))
	for i, a := range arg {
		var err error
		if x[i], err = cast.ToFloat64E(a); err != nil {
			return nil, fmt.Errorf("gridsplit: function '%s' argument %d: %v", fn, i, err)
		}
	}
	return x, nil
}

// outputVariable is a derived output column.
type outputVariable struct {
	name string
	expr *govaluate.EvaluableExpression
}

// newOutputVariables compiles the output variable expressions, sorted by
// name. Every variable an expression uses must be in params.
func newOutputVariables(vars map[string]string, params map[string]bool) ([]outputVariable, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	o := make([]outputVariable, len(names))
	for i, name := range names {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(vars[name], outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("gridsplit: output variable %s: %v", name, err)
		}
		for _, v := range expr.Vars() {
			if !params[v] {
				return nil, fmt.Errorf("gridsplit: output variable %s uses undefined variable %s", name, v)
			}
		}
		o[i] = outputVariable{name: name, expr: expr}
	}
	return o, nil
}

// evaluate returns the value of the output variable. Boolean results are
// converted to 1 or 0.
func (v outputVariable) evaluate(params map[string]interface{}) (float64, error) {
	r, err := v.expr.Evaluate(params)
	if err != nil {
		return math.NaN(), fmt.Errorf("gridsplit: evaluating output variable %s: %v", v.name, err)
	}
	if b, ok := r.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	f, err := cast.ToFloat64E(r)
	if err != nil {
		return math.NaN(), fmt.Errorf("gridsplit: output variable %s: %v", v.name, err)
	}
	return f, nil
}

// parameterValue converts an attribute read from a vector file, which is
// stored as text, into a number if it looks like one.
func parameterValue(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if f, err := cast.ToFloat64E(strings.TrimSpace(s)); err == nil {
			return f
		}
		return s
	}
	return v
}
