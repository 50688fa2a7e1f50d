package hcl

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext builds the evaluation context available to every
// configuration expression: the process environment as `env`, plus a small
// set of string functions.
func newEvalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	lookup := make(map[string]string)
	for _, e := range environ {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 || pair[0] == "" {
			continue
		}
		vars[pair[0]] = cty.StringVal(pair[1])
		lookup[pair[0]] = pair[1]
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
		Functions: map[string]function.Function{
			"getenv":   getenvFunc(lookup),
			"format":   stdlib.FormatFunc,
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}

// getenvFunc returns getenv(name, fallback), which resolves to fallback when
// the variable is unset or empty.
func getenvFunc(lookup map[string]string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
			{Name: "fallback", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if v := lookup[args[0].AsString()]; v != "" {
				return cty.StringVal(v), nil
			}
			return args[1], nil
		},
	})
}

// processEnviron is swapped in tests.
var processEnviron = os.Environ
