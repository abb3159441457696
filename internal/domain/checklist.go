package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Answer is one tri-state checklist value. The canonical form is lowercase;
// anything coming from a form or the backend goes through ParseAnswer first.
type Answer string

const (
	AnswerNone Answer = ""
	AnswerYes  Answer = "yes"
	AnswerNo   Answer = "no"
	AnswerNA   Answer = "na"
)

func ParseAnswer(s string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return AnswerYes, nil
	case "no":
		return AnswerNo, nil
	case "na", "n/a", "n-a":
		return AnswerNA, nil
	}
	return AnswerNone, fmt.Errorf("invalid answer %q", s)
}

// UnmarshalJSON canonicalizes backend cells. Null, empty and unrecognized values
// decode as AnswerNone so one bad cell does not drop a whole record list.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil || s == nil {
		*a = AnswerNone
		return nil
	}
	parsed, err := ParseAnswer(*s)
	if err != nil {
		*a = AnswerNone
		return nil
	}
	*a = parsed
	return nil
}

func (a Answer) Answered() bool {
	return a == AnswerYes || a == AnswerNo || a == AnswerNA
}

// Question is a key of the fixed seven-point checklist.
type Question string

const (
	QuestionPressure Question = "pressure"
	QuestionDamage   Question = "damage"
	QuestionSeal     Question = "seal"
	QuestionLabel    Question = "label"
	QuestionWeight   Question = "weight"
	QuestionHose     Question = "hose"
	QuestionExpiry   Question = "expiry"
)

// Questions lists the checklist in display order.
var Questions = []Question{
	QuestionPressure,
	QuestionDamage,
	QuestionSeal,
	QuestionLabel,
	QuestionWeight,
	QuestionHose,
	QuestionExpiry,
}

var questionText = map[Question]string{
	QuestionPressure: "Pressure gauge in the green zone",
	QuestionDamage:   "No physical damage, corrosion or leakage",
	QuestionSeal:     "Safety pin and tamper seal intact",
	QuestionLabel:    "Operating instructions legible",
	QuestionWeight:   "Weight / fullness acceptable",
	QuestionHose:     "Hose and nozzle in good condition",
	QuestionExpiry:   "Within service / expiry date",
}

func (q Question) IsValid() bool {
	_, ok := questionText[q]
	return ok
}

func (q Question) Text() string {
	return questionText[q]
}

// Answers returns the record's checklist values keyed by question.
func (i *Inspection) Answers() map[Question]Answer {
	return map[Question]Answer{
		QuestionPressure: i.PressureOK,
		QuestionDamage:   i.NoDamage,
		QuestionSeal:     i.SealIntact,
		QuestionLabel:    i.LabelReadable,
		QuestionWeight:   i.WeightOK,
		QuestionHose:     i.HoseOK,
		QuestionExpiry:   i.ExpiryValid,
	}
}

// SetAnswer writes a checklist value into the field the backend expects for it.
func (i *Inspection) SetAnswer(q Question, a Answer) {
	switch q {
	case QuestionPressure:
		i.PressureOK = a
	case QuestionDamage:
		i.NoDamage = a
	case QuestionSeal:
		i.SealIntact = a
	case QuestionLabel:
		i.LabelReadable = a
	case QuestionWeight:
		i.WeightOK = a
	case QuestionHose:
		i.HoseOK = a
	case QuestionExpiry:
		i.ExpiryValid = a
	}
}
