// internal/app/sync/conditions/conditions.go

// Package conditions evaluates assessment applicability rules against user
// data. Evaluate is pure and total: any malformed condition or missing
// field evaluates to false rather than erroring, so the reconciler can call
// it freely inside transactions.
package conditions

import (
	"strings"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// Input is the user-data view a condition is evaluated against. Fields
// holds the flattened profile attributes addressable by dotted path.
type Input struct {
	UserType   string
	BirthMonth int
	BirthYear  int
	Fields     map[string]interface{}
}

// InputOf builds the evaluation view for a user.
func InputOf(u models.User) Input {
	fields := map[string]interface{}{
		"userType": u.UserType,
		"name":     u.Name,
		"grade":    u.Grade,
	}
	for k, v := range u.Extra {
		fields[k] = v
	}
	return Input{
		UserType:   u.UserType,
		BirthMonth: u.BirthMonth,
		BirthYear:  u.BirthYear,
		Fields:     fields,
	}
}

// Evaluate applies cond to in. Select-all is always true; field conditions
// compare a dotted-path value against the literal; AND/OR composites
// recurse. Unknown shapes are false.
func Evaluate(in Input, cond models.Condition) bool {
	return evaluateAt(in, cond, time.Now().UTC())
}

// EvaluateAt is Evaluate with an explicit clock, for the derived age field.
func EvaluateAt(in Input, cond models.Condition, now time.Time) bool {
	return evaluateAt(in, cond, now)
}

func evaluateAt(in Input, cond models.Condition, now time.Time) bool {
	switch cond.Kind() {
	case models.CondSelectAll:
		return true

	case models.CondComposite:
		if cond.Op == models.OpAnd {
			for _, sub := range cond.Conditions {
				if !evaluateAt(in, sub, now) {
					return false
				}
			}
			return true
		}
		for _, sub := range cond.Conditions {
			if evaluateAt(in, sub, now) {
				return true
			}
		}
		return false

	case models.CondField:
		return evaluateField(in, cond, now)
	}
	return false
}

func evaluateField(in Input, cond models.Condition, now time.Time) bool {
	// Derived age only makes sense for students; every age comparison is
	// false for anyone else regardless of operator.
	if cond.Field == "age" {
		if in.UserType != models.UserTypeStudent {
			return false
		}
		age, ok := AgeAt(in.BirthMonth, in.BirthYear, now)
		if !ok {
			return false
		}
		return compare(float64(age), cond.Op, cond.Value)
	}

	val, ok := lookup(in.Fields, cond.Field)
	if !ok {
		return false
	}
	return compare(val, cond.Op, cond.Value)
}

// AgeAt computes a student's age in whole years from birth month/year.
// Returns ok=false when the birth data is absent or in the future.
func AgeAt(birthMonth, birthYear int, now time.Time) (int, bool) {
	if birthYear <= 0 || birthMonth < 1 || birthMonth > 12 {
		return 0, false
	}
	age := now.Year() - birthYear
	if int(now.Month()) < birthMonth {
		age--
	}
	if age < 0 {
		return 0, false
	}
	return age, true
}

// lookup resolves a dotted path through nested maps.
func lookup(fields map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = fields
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// compare applies op to (got, want). Numbers compare numerically across int
// and float encodings (bson decodes int32/int64/double unpredictably);
// everything else compares as strings, where only equality operators apply
// ordering lexicographically.
func compare(got interface{}, op string, want interface{}) bool {
	if gn, ok := toFloat(got); ok {
		if wn, ok := toFloat(want); ok {
			return compareFloat(gn, op, wn)
		}
		return false
	}
	gs, gok := got.(string)
	ws, wok := want.(string)
	if gok && wok {
		return compareString(gs, op, ws)
	}
	if gb, ok := got.(bool); ok {
		if wb, ok := want.(bool); ok {
			switch op {
			case models.OpEqual:
				return gb == wb
			case models.OpNotEqual:
				return gb != wb
			}
		}
	}
	return false
}

func compareFloat(a float64, op string, b float64) bool {
	switch op {
	case models.OpEqual:
		return a == b
	case models.OpNotEqual:
		return a != b
	case models.OpLessThan:
		return a < b
	case models.OpGreaterThan:
		return a > b
	case models.OpLessOrEqual:
		return a <= b
	case models.OpGreaterOrEqual:
		return a >= b
	}
	return false
}

func compareString(a, op string, b string) bool {
	switch op {
	case models.OpEqual:
		return a == b
	case models.OpNotEqual:
		return a != b
	case models.OpLessThan:
		return a < b
	case models.OpGreaterThan:
		return a > b
	case models.OpLessOrEqual:
		return a <= b
	case models.OpGreaterOrEqual:
		return a >= b
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
