package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

var (
	ErrUnknownQuestion = errors.New("unknown checklist question")
	ErrInvalidAnswer   = errors.New("invalid checklist answer")
)

// Checklist is the in-progress inspection: seven answers, who is inspecting, and notes.
type Checklist struct {
	answers       map[domain.Question]domain.Answer
	InspectorName string
	Remarks       string
}

// NewChecklist returns a checklist with every question unanswered.
func NewChecklist() *Checklist {
	answers := make(map[domain.Question]domain.Answer, len(domain.Questions))
	for _, q := range domain.Questions {
		answers[q] = domain.AnswerNone
	}
	return &Checklist{answers: answers}
}

func (c *Checklist) RecordAnswer(q domain.Question, value string) error {
	if _, ok := c.answers[q]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, q)
	}
	a, err := domain.ParseAnswer(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	c.answers[q] = a
	return nil
}

func (c *Checklist) Answer(q domain.Question) domain.Answer {
	return c.answers[q]
}

func (c *Checklist) AllAnswered() bool {
	for _, q := range domain.Questions {
		if !c.answers[q].Answered() {
			return false
		}
	}
	return true
}

func (c *Checklist) CanSubmit() bool {
	return c.AllAnswered() && strings.TrimSpace(c.InspectorName) != ""
}

// Result is Fail as soon as one question is answered "no".
func (c *Checklist) Result() domain.Result {
	for _, q := range domain.Questions {
		if c.answers[q] == domain.AnswerNo {
			return domain.ResultFail
		}
	}
	return domain.ResultPass
}

// Record assembles the wire record for equipmentID.
func (c *Checklist) Record(equipmentID string) domain.Inspection {
	rec := domain.Inspection{
		EquipmentID:   equipmentID,
		InspectorName: strings.TrimSpace(c.InspectorName),
		Remarks:       strings.TrimSpace(c.Remarks),
		Result:        c.Result(),
	}
	for _, q := range domain.Questions {
		rec.SetAnswer(q, c.answers[q])
	}
	return rec
}
