package store

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// StudentRefKind discriminates StudentRef
type StudentRefKind int

const (
	// StudentRaw is a bare student id
	StudentRaw StudentRefKind = iota
	// StudentExpanded is a populated student document
	StudentExpanded
)

// Student is the expanded form of a student reference
type Student struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// StudentRef refers to the student behind a submission. Stores send either the
// bare id or the populated document; both decode into a StudentRef whose ID is
// always set.
type StudentRef struct {
	kind    StudentRefKind
	student Student
}

func RawStudent(id string) StudentRef { return StudentRef{kind: StudentRaw, student: Student{ID: id}} }
func ExpandedStudent(s Student) StudentRef {
	return StudentRef{kind: StudentExpanded, student: s}
}

func (r StudentRef) Kind() StudentRefKind { return r.kind }

// ID returns the student id regardless of the reference's shape
func (r StudentRef) ID() string { return r.student.ID }

// Student returns the populated document; ok is false for a raw id
func (r StudentRef) Student() (Student, bool) {
	return r.student, r.kind == StudentExpanded
}

func (r StudentRef) MarshalJSON() ([]byte, error) {
	if r.kind == StudentExpanded {
		return json.Marshal(r.student)
	}
	return json.Marshal(r.student.ID)
}

func (r *StudentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = RawStudent(id)
		return nil
	}

	var doc struct {
		Student
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(ErrInvalidDocument, "student must be an id or a student document")
	}
	if doc.ID == "" {
		doc.ID = doc.AltID
	}
	*r = ExpandedStudent(doc.Student)
	return nil
}

// Submission is one student's value set for a template
type Submission struct {
	ID          string      `json:"id,omitempty"`
	TemplateID  string      `json:"templateId" validate:"required,docid"`
	Student     StudentRef  `json:"studentId"`
	Values      form.Values `json:"values"`
	SubmittedAt time.Time   `json:"submittedAt,omitempty"`
}

type wireSubmission struct {
	ID          string         `json:"id,omitempty"`
	TemplateID  string         `json:"templateId" validate:"required,docid"`
	Student     StudentRef     `json:"studentId"`
	Values      map[string]any `json:"values"`
	SubmittedAt time.Time      `json:"submittedAt,omitempty"`
}

// DecodeSubmission parses a submission document. Values are normalised against
// fields, so checkbox values come out as booleans whatever encoding was sent.
func DecodeSubmission(data []byte, fields []form.Field) (*Submission, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var w wireSubmission
	if err := dec.Decode(&w); err != nil {
		return nil, invalidDocument(err)
	}
	if err := validateStruct(w); err != nil {
		return nil, err
	}
	if w.Student.ID() == "" {
		return nil, errors.Wrap(ErrInvalidDocument, "submission has no student id")
	}
	values, err := form.ParseValues(w.Values, fields)
	if err != nil {
		return nil, invalidDocument(err)
	}
	return &Submission{
		ID:          w.ID,
		TemplateID:  w.TemplateID,
		Student:     w.Student,
		Values:      values,
		SubmittedAt: w.SubmittedAt,
	}, nil
}

// Missing returns the required fields the submission leaves empty
func (s *Submission) Missing(fields []form.Field) []form.Field {
	return form.MissingRequired(fields, s.Values)
}
