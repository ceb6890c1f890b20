// internal/domain/models/condition.go
package models

// Comparison operators accepted in field conditions. The same constants are
// stored in administration documents, so they never change meaning.
const (
	OpEqual          = "EQUAL"
	OpNotEqual       = "NOT_EQUAL"
	OpLessThan       = "LESS_THAN"
	OpGreaterThan    = "GREATER_THAN"
	OpLessOrEqual    = "LESS_THAN_OR_EQUAL_TO"
	OpGreaterOrEqual = "GREATER_THAN_OR_EQUAL_TO"
	OpAnd            = "AND"
	OpOr             = "OR"
)

// ConditionKind classifies the shape of a Condition.
type ConditionKind int

const (
	CondUnknown ConditionKind = iota
	CondSelectAll
	CondField
	CondComposite
)

// Condition is the tagged union over the three condition shapes:
// select-all, a single field comparison, or an AND/OR composite.
// Exactly one shape should be populated; Kind reports which.
type Condition struct {
	SelectAll  bool        `bson:"select_all,omitempty" json:"selectAll,omitempty"`
	Field      string      `bson:"field,omitempty" json:"field,omitempty"`
	Op         string      `bson:"op,omitempty" json:"op,omitempty"`
	Value      interface{} `bson:"value,omitempty" json:"value,omitempty"`
	Conditions []Condition `bson:"conditions,omitempty" json:"conditions,omitempty"`
}

// Kind reports which shape the condition takes. Malformed documents (for
// example a composite op with no sub-conditions) come back as CondUnknown,
// which the evaluator treats as false.
func (c Condition) Kind() ConditionKind {
	switch {
	case c.SelectAll:
		return CondSelectAll
	case (c.Op == OpAnd || c.Op == OpOr) && len(c.Conditions) > 0:
		return CondComposite
	case c.Field != "" && c.Op != "":
		return CondField
	}
	return CondUnknown
}

// AssessmentConditions gate whether an assessment applies to a user and
// whether it is optional for them. Nil means "no condition": assigned
// defaults to true, optional to false.
type AssessmentConditions struct {
	Assigned *Condition `bson:"assigned,omitempty" json:"assigned,omitempty"`
	Optional *Condition `bson:"optional,omitempty" json:"optional,omitempty"`
}
