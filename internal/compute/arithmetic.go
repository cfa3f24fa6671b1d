package compute

import (
	"errors"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
)

const minOperandsHint = "Hesaplama için en az 2 sayıya ihtiyacım var. Örnek: '500 * 12 kaç eder?'"

var errDivideByZero = apperr.Computation("divide", "Sıfıra bölme hatası! Payda sıfır olamaz.")

var operatorNames = map[string]string{
	"+": "toplama",
	"-": "çıkarma",
	"*": "çarpma",
	"/": "bölme",
}

// Arithmetic answers a calculation. Two numbers joined by one operator are
// computed directly; anything else goes through the expression evaluator.
func Arithmetic(query string, ents extract.Entities) (Result, error) {
	numbers := ents.Numbers
	if len(numbers) == 0 {
		numbers = extract.ExtractNumbers(query)
	}
	ops := ents.Operators
	if len(ops) == 0 {
		ops = extract.ExtractOperators(query)
	}

	if len(numbers) == 2 && len(ops) == 1 {
		v, err := apply(numbers[0], ops[0], numbers[1])
		if err != nil {
			return Result{}, err
		}
		expr := FormatNumber(numbers[0]) + " " + ops[0] + " " + FormatNumber(numbers[1])
		return arithmeticResult(expr, operatorNames[ops[0]], v), nil
	}

	if len(numbers) < 2 && len(ops) == 0 {
		return Result{}, apperr.Computation("arithmetic", minOperandsHint)
	}

	expr := SanitizeExpression(query)
	v, err := Evaluate(expr)
	if err != nil {
		if len(numbers) < 2 && !errors.Is(err, errDivideByZero) {
			return Result{}, apperr.Computation("arithmetic", minOperandsHint)
		}
		return Result{}, err
	}
	return arithmeticResult(expr, "ifade", v), nil
}

func apply(a float64, op string, b float64) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errDivideByZero
		}
		return a / b, nil
	}
	return 0, apperr.Computation("arithmetic", "desteklenmeyen işlem: "+op)
}

func arithmeticResult(expr, operation string, v float64) Result {
	formatted := FormatNumber(v)
	return Result{
		Text: "🧮 **Hesaplama Sonucu**\n\n" +
			"**İşlem:** " + expr + "\n" +
			"**Sonuç:** " + formatted,
		Details: map[string]any{
			"operation":        operation,
			"expression":       expr,
			"result":           v,
			"formatted_result": formatted,
		},
	}
}
