package promo

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Validator decides whether a promo code earns the discount. The storefront
// shipped with a single hard-coded code; keeping this behind an interface lets
// the backend-validated promotion system slot in later without touching the
// pricing path.
type Validator interface {
	Validate(ctx context.Context, code string) (bool, error)
}

// StaticValidator accepts an exact-match allow-list of codes.
type StaticValidator struct {
	codes map[string]struct{}
}

func NewStaticValidator(codes ...string) *StaticValidator {
	v := &StaticValidator{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c != "" {
			v.codes[c] = struct{}{}
		}
	}
	return v
}

func (v *StaticValidator) Validate(_ context.Context, code string) (bool, error) {
	_, ok := v.codes[code]
	return ok, nil
}

// RuleValidator evaluates codes against a boolean expression, e.g.
//
//	hasPrefix(code, "SAVE") && len(code) == 10
//
// The expression sees one variable, code.
type RuleValidator struct {
	program *vm.Program
}

func NewRuleValidator(rule string) (*RuleValidator, error) {
	program, err := expr.Compile(rule,
		expr.Env(ruleEnv{}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile promo rule: %w", err)
	}
	return &RuleValidator{program: program}, nil
}

type ruleEnv struct {
	Code string `expr:"code"`
}

func (v *RuleValidator) Validate(_ context.Context, code string) (bool, error) {
	out, err := expr.Run(v.program, ruleEnv{Code: code})
	if err != nil {
		return false, fmt.Errorf("evaluate promo rule: %w", err)
	}
	return out.(bool), nil
}
