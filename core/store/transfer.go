package store

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/trezcool/ieptracker/core"
	"github.com/trezcool/ieptracker/core/student"
)

// importEntry holds the fields every imported student must carry.
type importEntry struct {
	StudentID   string          `json:"studentId" validate:"required"`
	StudentName string          `json:"studentName" validate:"required"`
	Goals       json.RawMessage `json:"goals"`
}

// DecodeImport parses an export document, or a bare array of students.
// The whole import is rejected on the first invalid student.
func DecodeImport(r io.Reader) ([]student.Student, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ImportError{Index: -1, Reason: "reading file: " + err.Error()}
	}

	var raw []json.RawMessage
	payload := rosterPayload(data)
	if !isJSONArray(payload) || json.Unmarshal(payload, &raw) != nil {
		return nil, &ImportError{Index: -1, Reason: "students data must be an array"}
	}

	students := make([]student.Student, 0, len(raw))
	for i, item := range raw {
		var entry importEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			return nil, &ImportError{Index: i, Reason: "not a student object"}
		}
		if err := core.ValidateStruct(entry); err != nil {
			return nil, &ImportError{Index: i, Reason: "missing required fields"}
		}
		if !isJSONArray(entry.Goals) {
			return nil, &ImportError{Index: i, Reason: "goals must be an array"}
		}

		var stu student.Student
		if err := json.Unmarshal(item, &stu); err != nil {
			return nil, &ImportError{Index: i, Reason: err.Error()}
		}
		students = append(students, stu)
	}
	return student.Normalize(students), nil
}

// rosterPayload returns the students member of an object document, or data itself.
func rosterPayload(data []byte) []byte {
	var doc struct {
		Students json.RawMessage `json:"students"`
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err == nil && len(doc.Students) > 0 {
			return doc.Students
		}
	}
	return trimmed
}

func isJSONArray(raw json.RawMessage) bool {
	return strings.HasPrefix(strings.TrimSpace(string(raw)), "[")
}
