package student

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	var students []Student
	require.NoError(t, json.Unmarshal([]byte(`[
		{"studentId": "s1", "studentName": "Ada"},
		{"studentId": "s2", "studentName": "Bob", "goals": [
			{"goalId": "g1", "frequency": "weekly", "customFrequencyDays": 3}
		]}
	]`), &students))

	students = Normalize(students)
	require.Len(t, students, 2)
	assert.NotNil(t, students[0].Goals)
	assert.NotNil(t, students[1].Goals[0].AssessmentResults)
	assert.NotNil(t, students[1].Goals[0].Notes)
	assert.Equal(t, 0, students[1].Goals[0].CustomFrequencyDays)

	assert.Equal(t, []Student{}, Normalize(nil))
}

func TestClone(t *testing.T) {
	orig := []Student{{
		StudentID: "s1",
		Goals: []Goal{{
			GoalID:            "g1",
			AssessmentResults: results("2025-08-15", ResultPass),
			Notes:             []GoalNote{{NoteID: "n1", Note: "ok"}},
		}},
	}}

	cp := Clone(orig)
	assert.Equal(t, orig, cp)

	cp[0].Goals[0].AssessmentResults[0].Result = ResultFail
	cp[0].Goals[0].Notes[0].Note = "changed"
	cp[0].StudentName = "changed"
	assert.Equal(t, ResultPass, orig[0].Goals[0].AssessmentResults[0].Result)
	assert.Equal(t, "ok", orig[0].Goals[0].Notes[0].Note)
	assert.Empty(t, orig[0].StudentName)
}

func TestTotalGoals(t *testing.T) {
	assert.Equal(t, 0, TotalGoals(nil))
	assert.Equal(t, 3, TotalGoals([]Student{{Goals: make([]Goal, 2)}, {Goals: make([]Goal, 1)}, {}}))
}

func TestFrequency_IsValid(t *testing.T) {
	for _, f := range Frequencies {
		assert.True(t, f.IsValid(), f)
	}
	assert.False(t, Frequency("yearly").IsValid())
	assert.True(t, ResultPass.IsValid())
	assert.False(t, Result("maybe").IsValid())
}
