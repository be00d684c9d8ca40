package stats

import (
	"github.com/shopspring/decimal"
)

// Supported totals operators. Mean requires composite state (sum + count)
// and is handled by the accumulator rather than a pairwise fold.
const (
	OpCount = "count"
	OpSum   = "sum"
	OpMin   = "min"
	OpMax   = "max"
	OpMean  = "mean"
)

// Operator defines the reduce semantics of a totals operator. To add a new
// operator: implement this interface and register it in Operators. The
// totals hot path is a single map lookup — no switch.
type Operator interface {
	// Initial returns the accumulator after the very first value.
	Initial(incoming decimal.Decimal) decimal.Decimal

	// Apply folds an incoming value into an existing accumulator.
	Apply(current, incoming decimal.Decimal) decimal.Decimal
}

// Operators is the registry of pairwise-foldable totals operators.
var Operators = map[string]Operator{
	OpCount: countOp{},
	OpSum:   sumOp{},
	OpMin:   minOp{},
	OpMax:   maxOp{},
}

// ValidOperator reports whether op is a supported totals operator.
func ValidOperator(op string) bool {
	if op == OpMean {
		return true
	}
	_, ok := Operators[op]
	return ok
}

type countOp struct{}

func (countOp) Initial(_ decimal.Decimal) decimal.Decimal { return decimal.NewFromInt(1) }
func (countOp) Apply(cur, _ decimal.Decimal) decimal.Decimal {
	return cur.Add(decimal.NewFromInt(1))
}

type sumOp struct{}

func (sumOp) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (sumOp) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }

type minOp struct{}

func (minOp) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (minOp) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.LessThan(cur) {
		return inc
	}
	return cur
}

type maxOp struct{}

func (maxOp) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (maxOp) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.GreaterThan(cur) {
		return inc
	}
	return cur
}
