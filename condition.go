package mailer

import (
	"strconv"
	"strings"
)

// MatchesConditions reports whether a document satisfies every condition in
// the list. Conditions are evaluated left to right with AND semantics and
// short-circuit on the first failure. An empty list always matches.
//
// Field lookup is a single-level key lookup; documents are treated as flat
// for condition purposes.
func MatchesConditions(document map[string]interface{}, conditions []Condition) bool {
	for _, condition := range conditions {
		if !matchesCondition(document, condition) {
			return false
		}
	}

	return true
}

// Coercion rules per operator:
//
//	==, !=     string comparison of the coerced field value; an absent or
//	           nil field never equals, so != passes for it
//	>, <       numeric comparison; either side failing to parse as a number
//	           fails the comparison (NaN compares false)
//	contains   substring test on the coerced field value
//	exists     presence test, meaning non-nil rather than truthy: 0 and ""
//	           both count as present
//
// An unrecognised operator never matches, so one malformed rule cannot take
// an entire trigger out of service.
func matchesCondition(document map[string]interface{}, condition Condition) bool {
	value, present := document[condition.Field]
	present = present && value != nil

	switch condition.Operator {
	case OpEquals:
		return present && Stringify(value) == condition.Value

	case OpNotEquals:
		return !(present && Stringify(value) == condition.Value)

	case OpGreaterThan:
		left, right, ok := numericOperands(value, present, condition.Value)
		return ok && left > right

	case OpLessThan:
		left, right, ok := numericOperands(value, present, condition.Value)
		return ok && left < right

	case OpContains:
		return present && strings.Contains(Stringify(value), condition.Value)

	case OpExists:
		return present == (condition.Value == "true")

	default:
		return false
	}
}

func numericOperands(value interface{}, present bool, conditionValue string) (float64, float64, bool) {
	if !present {
		return 0, 0, false
	}

	left, err := strconv.ParseFloat(Stringify(value), 64)
	if err != nil {
		return 0, 0, false
	}

	right, err := strconv.ParseFloat(conditionValue, 64)
	if err != nil {
		return 0, 0, false
	}

	return left, right, true
}
