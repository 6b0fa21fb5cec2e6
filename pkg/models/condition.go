package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Comparator is a leaf-level field comparison operator.
type Comparator string

const (
	ComparatorEquals      Comparator = "equals"
	ComparatorNotEquals   Comparator = "not_equals"
	ComparatorGreaterThan Comparator = "greater_than"
	ComparatorLessThan    Comparator = "less_than"
	ComparatorContains    Comparator = "contains"
	ComparatorIsEmpty     Comparator = "is_empty"
)

// LogicalOperator combines child expressions.
type LogicalOperator string

const (
	OperatorAnd LogicalOperator = "and"
	OperatorOr  LogicalOperator = "or"
)

// Expression is a structured boolean filter over record fields: a tree of
// and/or branches whose leaves are field-comparator-value comparisons. A
// nil or empty expression matches everything, the default for rules and
// processes with unrestricted entry.
//
// Expressions are parsed and validated once at configuration-save time so
// authoring mistakes surface as ErrConfiguration when the rule is saved,
// not when it fires.
type Expression struct {
	Operator   LogicalOperator `json:"operator,omitempty"`
	Conditions []*Expression   `json:"conditions,omitempty"`

	Field      string     `json:"field,omitempty"`
	Comparator Comparator `json:"comparator,omitempty"`
	Value      any        `json:"value,omitempty"`
}

// ParseExpression builds an Expression from a JSON-compatible document and
// validates it. An empty document yields nil, the match-everything
// expression.
func ParseExpression(doc map[string]any) (*Expression, error) {
	if len(doc) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("condition document is not JSON-compatible: %w", ErrConfiguration)
	}

	return ParseExpressionJSON(raw)
}

// ParseExpressionJSON builds an Expression from raw JSON and validates it.
func ParseExpressionJSON(raw []byte) (*Expression, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var expr Expression
	if err := json.Unmarshal(raw, &expr); err != nil {
		return nil, fmt.Errorf("malformed condition document: %v: %w", err, ErrConfiguration)
	}

	if expr.isEmpty() {
		return nil, nil
	}

	if err := expr.Validate(); err != nil {
		return nil, err
	}

	return &expr, nil
}

func (e *Expression) isEmpty() bool {
	return e == nil || (e.Field == "" && len(e.Conditions) == 0 && e.Operator == "")
}

func (e *Expression) isLeaf() bool {
	return e.Field != ""
}

// Validate checks the expression tree for authoring errors: unknown
// comparators or operators, missing operands, and nodes that are neither
// leaves nor branches.
func (e *Expression) Validate() error {
	if e.isEmpty() {
		return nil
	}

	if e.isLeaf() {
		if len(e.Conditions) > 0 {
			return fmt.Errorf("condition on field %q mixes leaf and branch forms: %w", e.Field, ErrConfiguration)
		}

		switch e.Comparator {
		case ComparatorEquals, ComparatorNotEquals, ComparatorGreaterThan, ComparatorLessThan, ComparatorContains:
			if e.Value == nil {
				return fmt.Errorf("condition on field %q is missing a value for comparator %q: %w", e.Field, e.Comparator, ErrConfiguration)
			}
		case ComparatorIsEmpty:
			// No operand.
		case "":
			return fmt.Errorf("condition on field %q is missing a comparator: %w", e.Field, ErrConfiguration)
		default:
			return fmt.Errorf("unknown comparator %q on field %q: %w", e.Comparator, e.Field, ErrConfiguration)
		}

		return nil
	}

	switch e.Operator {
	case OperatorAnd, OperatorOr:
	default:
		return fmt.Errorf("unknown logical operator %q: %w", e.Operator, ErrConfiguration)
	}

	if len(e.Conditions) == 0 {
		return fmt.Errorf("%q branch has no conditions: %w", e.Operator, ErrConfiguration)
	}

	for _, child := range e.Conditions {
		if err := child.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Evaluate runs the expression against a record's field values. It is pure
// and side-effect-free. Missing fields evaluate comparators as false,
// except is_empty which is true. Malformed expressions fail with
// ErrConfiguration rather than silently not matching.
func (e *Expression) Evaluate(record FieldRecord) (bool, error) {
	if e.isEmpty() {
		return true, nil
	}

	if err := e.Validate(); err != nil {
		return false, err
	}

	return e.evaluate(record)
}

func (e *Expression) evaluate(record FieldRecord) (bool, error) {
	if e.isLeaf() {
		return e.evaluateLeaf(record)
	}

	for _, child := range e.Conditions {
		matched, err := child.evaluate(record)
		if err != nil {
			return false, err
		}

		if e.Operator == OperatorAnd && !matched {
			return false, nil
		}

		if e.Operator == OperatorOr && matched {
			return true, nil
		}
	}

	return e.Operator == OperatorAnd, nil
}

func (e *Expression) evaluateLeaf(record FieldRecord) (bool, error) {
	value, ok := record.Field(e.Field)

	if e.Comparator == ComparatorIsEmpty {
		return !ok || isEmptyValue(value), nil
	}

	if !ok {
		return false, nil
	}

	switch e.Comparator {
	case ComparatorEquals:
		return looseEquals(value, e.Value), nil
	case ComparatorNotEquals:
		return !looseEquals(value, e.Value), nil
	case ComparatorGreaterThan:
		cmp, comparable := compareValues(value, e.Value)
		return comparable && cmp > 0, nil
	case ComparatorLessThan:
		cmp, comparable := compareValues(value, e.Value)
		return comparable && cmp < 0, nil
	case ComparatorContains:
		return containsValue(value, e.Value), nil
	default:
		return false, fmt.Errorf("unknown comparator %q on field %q: %w", e.Comparator, e.Field, ErrConfiguration)
	}
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// looseEquals compares numerically when both sides are numbers, otherwise
// by string rendering. JSON decoding produces float64 for every number, so
// strict equality would miss int/float pairs.
func looseEquals(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)

	if aok && bok {
		return fa == fb
	}

	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues returns -1/0/+1 and whether the operands are comparable.
// Numbers compare numerically, everything else lexicographically, which
// keeps ISO8601 date strings ordered correctly.
func compareValues(a, b any) (int, bool) {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)

	if aok && bok {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	if aok != bok {
		return 0, false
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func containsValue(haystack, needle any) bool {
	switch v := haystack.(type) {
	case string:
		return strings.Contains(v, fmt.Sprint(needle))
	case []any:
		for _, item := range v {
			if looseEquals(item, needle) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
