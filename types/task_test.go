package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatusPending.IsTerminal())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusExpired.IsTerminal())
	assert.True(t, TaskStatusCanceled.IsTerminal())
}

func TestPriority_Valid(t *testing.T) {
	t.Parallel()

	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, Priority("urgent").Valid())
	assert.False(t, Priority("").Valid())
}

func TestValidateFields(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateFields(nil))
	require.NoError(t, ValidateFields([]Field{{Name: "a"}, {Name: "b"}}))

	err := ValidateFields([]Field{{Name: "a"}, {Name: "a"}})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	err = ValidateFields([]Field{{Name: ""}})
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
}

func TestTaskDetail_Decode(t *testing.T) {
	t.Parallel()

	var d TaskDetail
	require.NoError(t, json.Unmarshal([]byte(`{
		"taskId": "t1",
		"hitlTaskId": "h1",
		"status": "completed",
		"submission": {"data": {"q": "answer"}}
	}`), &d))

	assert.Equal(t, "t1", d.TaskID)
	assert.Equal(t, TaskStatusCompleted, d.Status)
	assert.Equal(t, map[string]any{"q": "answer"}, d.SubmissionData())

	var pending TaskDetail
	require.NoError(t, json.Unmarshal([]byte(`{"taskId":"t2","status":"pending"}`), &pending))
	assert.Equal(t, map[string]any{}, pending.SubmissionData())
	assert.Equal(t, map[string]any{}, (*TaskDetail)(nil).SubmissionData())
}

func TestField_JSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Field{Type: FieldTypeText, Name: "q", Required: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","name":"q","required":true}`, string(raw))
}

func TestVerification_Map(t *testing.T) {
	t.Parallel()

	pending := Verification{TaskID: "t1", FormURL: "https://f"}
	assert.True(t, pending.Pending())
	assert.Equal(t, map[string]any{
		"completed": false,
		"task_id":   "t1",
		"form_url":  "https://f",
		"result":    nil,
	}, pending.Map())

	done := Verification{Completed: true, TaskID: "t1", Result: map[string]any{"q": "a"}}
	assert.False(t, done.Pending())
	assert.Equal(t, map[string]any{"q": "a"}, done.Map()["result"])
}
