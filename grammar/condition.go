package grammar

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Conditions are boolean expressions over the attributes of a start tag:
//
//	attr('type')   value of the attribute, "" when absent
//	has('type')    whether the attribute is present
//
// The expr builtins (lower, trim, in, ...) are available.

type attrLookup func(key string) (string, bool)

func conditionEnv(lookup attrLookup) map[string]any {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return map[string]any{
		"attr": func(key string) string {
			v, _ := lookup(key)
			return v
		},
		"has": func(key string) bool {
			_, ok := lookup(key)
			return ok
		},
	}
}

func compileCondition(s string) (*vm.Program, error) {
	return expr.Compile(s, expr.Env(conditionEnv(nil)), expr.AsBool())
}

// evalCondition runs a compiled condition. A condition that fails at run
// time counts as true.
func evalCondition(prog *vm.Program, lookup attrLookup) bool {
	out, err := vm.Run(prog, conditionEnv(lookup))
	if err != nil {
		return true
	}
	b, ok := out.(bool)
	return !ok || b
}
