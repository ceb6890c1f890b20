package conditions_test

import (
	"testing"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/sync/conditions"
	"github.com/dalemusser/cohorthub/internal/domain/models"
)

func student() conditions.Input {
	return conditions.InputOf(models.User{
		ID:         "u1",
		UserType:   models.UserTypeStudent,
		Grade:      "3",
		BirthMonth: 6,
		BirthYear:  2016,
	})
}

func teacher() conditions.Input {
	return conditions.InputOf(models.User{ID: "u2", UserType: models.UserTypeTeacher})
}

func TestEvaluate_SelectAll(t *testing.T) {
	cond := models.Condition{SelectAll: true}
	if !conditions.Evaluate(student(), cond) {
		t.Error("select-all should be true for a student")
	}
	if !conditions.Evaluate(teacher(), cond) {
		t.Error("select-all should be true for a teacher")
	}
}

func TestEvaluate_FieldComparisons(t *testing.T) {
	tests := []struct {
		name string
		in   conditions.Input
		cond models.Condition
		want bool
	}{
		{
			"userType equal match",
			student(),
			models.Condition{Field: "userType", Op: models.OpEqual, Value: "student"},
			true,
		},
		{
			"userType equal mismatch",
			teacher(),
			models.Condition{Field: "userType", Op: models.OpEqual, Value: "student"},
			false,
		},
		{
			"userType not-equal",
			teacher(),
			models.Condition{Field: "userType", Op: models.OpNotEqual, Value: "student"},
			true,
		},
		{
			"grade string compare",
			student(),
			models.Condition{Field: "grade", Op: models.OpLessOrEqual, Value: "5"},
			true,
		},
		{
			"missing field is false",
			student(),
			models.Condition{Field: "school.level", Op: models.OpEqual, Value: "primary"},
			false,
		},
		{
			"unknown operator is false",
			student(),
			models.Condition{Field: "grade", Op: "LIKE", Value: "3"},
			false,
		},
		{
			"unknown shape is false",
			student(),
			models.Condition{},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conditions.Evaluate(tt.in, tt.cond); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Composite(t *testing.T) {
	isStudent := models.Condition{Field: "userType", Op: models.OpEqual, Value: "student"}
	all := models.Condition{SelectAll: true}

	and := models.Condition{Op: models.OpAnd, Conditions: []models.Condition{all, isStudent}}
	if !conditions.Evaluate(student(), and) {
		t.Error("AND(true, student) should be true for a student")
	}
	if conditions.Evaluate(teacher(), and) {
		t.Error("AND(true, student) should be false for a teacher")
	}

	or := models.Condition{Op: models.OpOr, Conditions: []models.Condition{isStudent, all}}
	if !conditions.Evaluate(teacher(), or) {
		t.Error("OR(student, true) should be true for a teacher")
	}

	nested := models.Condition{Op: models.OpAnd, Conditions: []models.Condition{
		{Op: models.OpOr, Conditions: []models.Condition{isStudent}},
		{Field: "grade", Op: models.OpEqual, Value: "3"},
	}}
	if !conditions.Evaluate(student(), nested) {
		t.Error("nested composite should be true for a third-grade student")
	}
}

func TestEvaluate_DerivedAge(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Student born 2016-06 is 10 years old on 2026-09-01.
	cond := models.Condition{Field: "age", Op: models.OpGreaterOrEqual, Value: 10}
	if !conditions.EvaluateAt(student(), cond, now) {
		t.Error("age >= 10 should hold for a student born 2016-06")
	}

	cond = models.Condition{Field: "age", Op: models.OpLessThan, Value: 10}
	if conditions.EvaluateAt(student(), cond, now) {
		t.Error("age < 10 should not hold")
	}

	// Birthday not yet reached this year.
	late := conditions.InputOf(models.User{
		UserType: models.UserTypeStudent, BirthMonth: 12, BirthYear: 2016,
	})
	cond = models.Condition{Field: "age", Op: models.OpEqual, Value: 9}
	if !conditions.EvaluateAt(late, cond, now) {
		t.Error("age should be 9 before the December birthday")
	}
}

func TestEvaluate_AgeNonStudentAlwaysFalse(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	adult := conditions.InputOf(models.User{
		UserType: models.UserTypeTeacher, BirthMonth: 1, BirthYear: 1990,
	})
	for _, op := range []string{
		models.OpEqual, models.OpNotEqual, models.OpLessThan,
		models.OpGreaterThan, models.OpLessOrEqual, models.OpGreaterOrEqual,
	} {
		cond := models.Condition{Field: "age", Op: op, Value: 0}
		if conditions.EvaluateAt(adult, cond, now) {
			t.Errorf("age condition with op %s must be false for a non-student", op)
		}
	}
}

func TestEvaluate_NumericCoercion(t *testing.T) {
	in := conditions.Input{
		UserType: models.UserTypeStudent,
		Fields:   map[string]interface{}{"score": int32(42)},
	}
	cond := models.Condition{Field: "score", Op: models.OpEqual, Value: float64(42)}
	if !conditions.Evaluate(in, cond) {
		t.Error("int32 42 should equal float64 42")
	}
}

func TestAgeAt(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		month, year int
		want        int
		ok          bool
	}{
		{6, 2016, 10, true},
		{9, 2016, 10, true},
		{10, 2016, 9, true},
		{0, 2016, 0, false},
		{13, 2016, 0, false},
		{6, 0, 0, false},
		{1, 2030, 0, false},
	}
	for _, tt := range tests {
		got, ok := conditions.AgeAt(tt.month, tt.year, now)
		if ok != tt.ok || got != tt.want {
			t.Errorf("AgeAt(%d, %d) = (%d, %v), want (%d, %v)",
				tt.month, tt.year, got, ok, tt.want, tt.ok)
		}
	}
}
