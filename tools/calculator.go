package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/linanwx/notebot/provider"
)

// CalculatorTool evaluates arithmetic expressions with CEL.
type CalculatorTool struct {
	env *cel.Env
}

// NewCalculatorTool builds the calculator with an empty CEL environment.
func NewCalculatorTool() (*CalculatorTool, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("calculator env: %w", err)
	}
	return &CalculatorTool{env: env}, nil
}

// Def returns the tool definition.
func (t *CalculatorTool) Def() provider.ToolDef {
	return provider.ToolDef{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        "calculator",
			Description: "Evaluate an arithmetic expression such as (3 + 4) * 2 / 7. Supports + - * / %, parentheses and comparisons.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{
						"type":        "string",
						"description": "The expression to evaluate.",
					},
				},
				"required":             []string{"expression"},
				"additionalProperties": false,
			},
		},
	}
}

type calculatorArgs struct {
	Expression string `json:"expression"`
}

// Run executes the tool.
func (t *CalculatorTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var a calculatorArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	expr := strings.TrimSpace(a.Expression)
	if expr == "" {
		return "", errors.New("expression is empty")
	}

	// Integer literals are promoted so 7/2 is 3.5; % only exists on ints,
	// so the literal form is the fallback.
	out, err := t.eval(ctx, promoteIntegerLiterals(expr))
	if err != nil {
		var fallbackErr error
		out, fallbackErr = t.eval(ctx, expr)
		if fallbackErr != nil {
			return "", err
		}
	}
	return out, nil
}

func (t *CalculatorTool) eval(ctx context.Context, expr string) (string, error) {
	ast, iss := t.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return "", fmt.Errorf("invalid expression: %w", iss.Err())
	}
	prg, err := t.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}
	val, _, err := prg.ContextEval(ctx, map[string]any{})
	if err != nil {
		return "", fmt.Errorf("evaluation failed: %w", err)
	}

	switch v := val.Value().(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", errors.New("result is not a finite number")
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// promoteIntegerLiterals rewrites bare integer literals as doubles (2 → 2.0).
func promoteIntegerLiterals(expr string) string {
	var b strings.Builder
	b.Grow(len(expr) + 8)
	for i := 0; i < len(expr); {
		c := expr[i]
		if !isDigit(c) || (i > 0 && (isIdentChar(expr[i-1]) || expr[i-1] == '.')) {
			b.WriteByte(c)
			i++
			continue
		}
		j := i
		for j < len(expr) && isDigit(expr[j]) {
			j++
		}
		b.WriteString(expr[i:j])
		if j >= len(expr) || (expr[j] != '.' && expr[j] != 'e' && expr[j] != 'E' && !isIdentChar(expr[j])) {
			b.WriteString(".0")
		}
		i = j
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
