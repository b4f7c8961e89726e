// Package mathexpr evaluates arithmetic over numeric literals.
//
// Only digits, decimal points, exponents, + - * / and parentheses are
// accepted. Every literal is rewritten as a double before evaluation so
// integer division never truncates.
package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// ErrEmpty is returned for a blank expression.
	ErrEmpty = errors.New("empty expression")
	// ErrCharacters is returned when the expression holds anything but
	// numeric literals and arithmetic operators.
	ErrCharacters = errors.New("expression contains unsupported characters")
	// ErrNotFinite is returned when the result is infinite or NaN.
	ErrNotFinite = errors.New("expression result is not finite")
)

var (
	allowed = regexp.MustCompile(`^[0-9eE+\-*/().\s]*$`)
	literal = regexp.MustCompile(`(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func environment() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv()
	})
	return env, envErr
}

// Normalize rewrites every numeric literal as a CEL double literal.
func Normalize(expr string) string {
	return literal.ReplaceAllStringFunc(expr, func(m string) string {
		parts := literal.FindStringSubmatch(m)
		mantissa, exponent := parts[1], parts[2]
		switch {
		case strings.HasPrefix(mantissa, "."):
			mantissa = "0" + mantissa
		case strings.HasSuffix(mantissa, "."):
			mantissa += "0"
		case !strings.Contains(mantissa, "."):
			mantissa += ".0"
		}
		return mantissa + exponent
	})
}

// Evaluate computes the value of an arithmetic expression.
func Evaluate(expr string) (float64, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, ErrEmpty
	}
	if !allowed.MatchString(expr) {
		return 0, ErrCharacters
	}

	e, err := environment()
	if err != nil {
		return 0, fmt.Errorf("build evaluator: %w", err)
	}
	ast, issues := e.Compile(Normalize(expr))
	if issues != nil && issues.Err() != nil {
		return 0, fmt.Errorf("parse %q: %w", expr, issues.Err())
	}
	prg, err := e.Program(ast)
	if err != nil {
		return 0, fmt.Errorf("plan %q: %w", expr, err)
	}
	out, _, err := prg.Eval(map[string]any{})
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expr, err)
	}

	v, ok := out.Value().(float64)
	if !ok {
		return 0, fmt.Errorf("evaluate %q: unexpected result type %T", expr, out.Value())
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrNotFinite
	}
	return v, nil
}
