package kiroku

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/kirokuforms/config"
	"github.com/BaSui01/kirokuforms/testutil"
	"github.com/BaSui01/kirokuforms/testutil/mocks"
	"github.com/BaSui01/kirokuforms/types"
)

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(config.ClientConfig{})
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
	assert.Contains(t, err.Error(), "api_key is required")

	_, err = New(config.ClientConfig{APIKey: "k", BaseURL: "not a url"})
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestNew_AppliesDefaults(t *testing.T) {
	c, err := New(config.ClientConfig{APIKey: "k"})
	require.NoError(t, err)

	cfg := c.Config()
	assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, config.DefaultClientConfig().PollInterval, cfg.PollInterval)
	assert.Equal(t, config.DefaultClientConfig().WaitTimeout, cfg.WaitTimeout)
}

// Feature: task lifecycle, Property: 缺少 fields 与 template_id 总是配置错误
func TestProperty_CreateTaskRequiresFieldsOrTemplate(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)
	ctx := testutil.TestContext(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("nil fields without template is a configuration error", prop.ForAll(
		func(title, description, expiration string, priority string) bool {
			_, err := c.CreateTask(ctx, CreateTaskRequest{
				Title:       title,
				Description: description,
				Expiration:  expiration,
				Priority:    types.Priority(priority),
				InitialData: map[string]any{"k": title},
			})
			return types.IsConfiguration(err)
		},
		gen.AnyString(),
		gen.AlphaString(),
		gen.OneConstOf("", "1h", "2d"),
		gen.OneConstOf("", "low", "medium", "high"),
	))

	properties.TestingRun(t)
	assert.Zero(t, svc.CallCount(), "no request may reach the service")
}

func TestCreateTask_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTaskRequest
		wantMsg string
	}{
		{
			name:    "neither fields nor template",
			req:     CreateTaskRequest{Title: "t"},
			wantMsg: "either fields or template_id must be provided",
		},
		{
			name:    "empty field list",
			req:     CreateTaskRequest{Title: "t", Fields: []types.Field{}},
			wantMsg: "at least one field is required when not using a template",
		},
		{
			name: "duplicate names",
			req: CreateTaskRequest{Title: "t", Fields: []types.Field{
				{Type: types.FieldTypeText, Name: "q"},
				{Type: types.FieldTypeText, Name: "q"},
			}},
			wantMsg: "duplicate",
		},
		{
			name:    "empty name",
			req:     CreateTaskRequest{Title: "t", Fields: []types.Field{{Type: types.FieldTypeText}}},
			wantMsg: "name",
		},
		{
			name:    "invalid priority",
			req:     CreateTaskRequest{Title: "t", Fields: textField("q"), Priority: "urgent"},
			wantMsg: "invalid priority",
		},
	}

	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateTask(testutil.TestContext(t), tt.req)
			require.Error(t, err)
			assert.True(t, types.IsConfiguration(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
	assert.Zero(t, svc.CallCount())
}

func TestCreateTask_Payload(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)

	task, err := c.CreateTask(testutil.TestContext(t), CreateTaskRequest{
		Title:       "Review",
		Description: "Check it",
		Fields:      textField("q"),
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", task.TaskID)
	assert.Equal(t, "hitl-1", task.HITLTaskID)
	assert.Equal(t, "form-1", task.FormID)
	assert.Equal(t, "https://forms.example.com/f/task-1", task.FormURL)

	call := svc.LastCall()
	assert.Equal(t, "POST", call.Method)
	assert.Equal(t, mocks.BasePath+"/tools/request-human-review", call.Path)
	assert.Equal(t, "Review", call.Body["title"])
	assert.Equal(t, "Check it", call.Body["description"])
	assert.Equal(t, map[string]any{}, call.Body["initialData"])
	assert.Equal(t, map[string]any{"priority": "medium"}, call.Body["settings"], "priority defaults to medium")
	assert.NotContains(t, call.Body, "templateId")
	assert.Equal(t, []any{map[string]any{"type": "text", "name": "q", "required": true}}, call.Body["fields"])
}

func TestCreateTask_Settings(t *testing.T) {
	svc := mocks.NewMockService(t)
	cfg := testConfig(svc)
	cfg.WebhookURL = "https://hooks.example.com/kiroku"
	c, err := New(cfg, WithTaskIDGenerator(func() string { return "generated-1" }))
	require.NoError(t, err)
	ctx := testutil.TestContext(t)

	task, err := c.CreateTask(ctx, CreateTaskRequest{
		Title:      "t",
		Fields:     textField("q"),
		Expiration: "2d",
		Priority:   types.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, "generated-1", task.TaskID)
	assert.Equal(t, map[string]any{
		"expiration":  "2d",
		"priority":    "high",
		"taskId":      "generated-1",
		"callbackUrl": "https://hooks.example.com/kiroku",
	}, svc.LastCall().Body["settings"])

	// 显式参数优先于配置与生成器
	_, err = c.CreateTask(ctx, CreateTaskRequest{
		Title:       "t",
		Fields:      textField("q"),
		TaskID:      "mine",
		CallbackURL: "https://other.example.com/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"priority":    "medium",
		"taskId":      "mine",
		"callbackUrl": "https://other.example.com/cb",
	}, svc.LastCall().Body["settings"])
}

func TestCreateTask_Template(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)
	ctx := testutil.TestContext(t)

	_, err := c.CreateTask(ctx, CreateTaskRequest{Title: "t", TemplateID: "tpl-1"})
	require.NoError(t, err)
	body := svc.LastCall().Body
	assert.Equal(t, "tpl-1", body["templateId"])
	assert.NotContains(t, body, "fields")

	_, err = c.CreateTask(ctx, CreateTaskRequest{Title: "t", TemplateID: "tpl-1", Fields: []types.Field{}})
	require.NoError(t, err, "template makes an empty field list acceptable")
	assert.NotContains(t, svc.LastCall().Body, "fields")

	_, err = c.CreateTask(ctx, CreateTaskRequest{Title: "t", TemplateID: "tpl-1", Fields: textField("extra")})
	require.NoError(t, err)
	assert.Len(t, svc.LastCall().Body["fields"], 1)
}

func TestUUIDTaskID(t *testing.T) {
	a, b := UUIDTaskID(), UUIDTaskID()
	assert.Regexp(t, `^task-[0-9a-f-]{36}$`, a)
	assert.NotEqual(t, a, b)
}

func TestCreateVerificationTask_SynthesizesFields(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)

	_, err := c.CreateVerificationTask(testutil.TestContext(t),
		types.D("a", 1, "is_ready", true, "note", "x"),
		CreateTaskRequest{Title: "Verify"},
	)
	require.NoError(t, err)

	fields, ok := svc.LastCall().Body["fields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 5)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"a", "is_ready", "note", "is_correct", "comments"}, names)

	isReady := fields[1].(map[string]any)
	assert.Equal(t, "radio", isReady["type"])
	assert.Equal(t, "true", isReady["defaultValue"])
	assert.Equal(t, "Is Ready", isReady["label"])
}

func TestCreateVerificationTask_ExplicitFields(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)

	_, err := c.CreateVerificationTask(testutil.TestContext(t),
		types.D("a", 1),
		CreateTaskRequest{Title: "Verify", Fields: textField("custom")},
	)
	require.NoError(t, err)
	assert.Len(t, svc.LastCall().Body["fields"], 1)
}

func TestCreateVerificationTask_ReservedKeyCollides(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)

	for _, key := range []string{FieldIsCorrect, FieldComments} {
		_, err := c.CreateVerificationTask(testutil.TestContext(t),
			types.D("name", "Ada", key, "x"),
			CreateTaskRequest{Title: "Verify"},
		)
		testutil.AssertErrorCode(t, err, types.ErrConfiguration)
		assert.Contains(t, err.Error(), "duplicate field name", key)
	}
	assert.Zero(t, svc.CallCount())
}

func TestGetTask_NotFound(t *testing.T) {
	svc := mocks.NewMockService(t)
	c, _ := newTestClient(t, svc)

	_, err := c.GetTask(testutil.TestContext(t), "missing")
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrService, e.Code)
	assert.Equal(t, "TASK_NOT_FOUND", e.ServiceCode)
}

func TestGetTask_EscapesID(t *testing.T) {
	svc := mocks.NewMockService(t)
	svc.AddTask(mocks.MockTask{TaskID: "a b"})
	c, _ := newTestClient(t, svc)

	detail, err := c.GetTask(testutil.TestContext(t), "a b")
	require.NoError(t, err)
	assert.Equal(t, "a b", detail.TaskID)
	assert.Equal(t, types.TaskStatusPending, detail.Status)
}

func TestListTasks(t *testing.T) {
	svc := mocks.NewMockService(t)
	for i := 1; i <= 3; i++ {
		svc.AddTask(mocks.MockTask{TaskID: fmt.Sprintf("t%d", i)})
	}
	svc.SetStatus("t2", types.TaskStatusCompleted)
	c, _ := newTestClient(t, svc)
	ctx := testutil.TestContext(t)

	data, err := c.ListTasks(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, "limit=10&offset=0", svc.LastCall().RawQuery)
	assert.EqualValues(t, 3, data["total"])
	assert.Len(t, data["tasks"], 3)

	data, err = c.ListTasks(ctx, ListOptions{Status: types.TaskStatusPending, Limit: 1, Offset: 1})
	require.NoError(t, err)
	q, err := url.ParseQuery(svc.LastCall().RawQuery)
	require.NoError(t, err)
	assert.Equal(t, "pending", q.Get("status"))
	assert.Equal(t, "1", q.Get("limit"))
	assert.Equal(t, "1", q.Get("offset"))
	assert.EqualValues(t, 2, data["total"])
	tasks := data["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t3", tasks[0].(map[string]any)["taskId"])
}

func TestCancelTask(t *testing.T) {
	svc := mocks.NewMockService(t)
	svc.AddTask(mocks.MockTask{TaskID: "t1"})
	c, _ := newTestClient(t, svc)
	ctx := testutil.TestContext(t)

	detail, err := c.CancelTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusCanceled, detail.Status)
	assert.Equal(t, mocks.BasePath+"/resources/hitl/tasks/t1/cancel", svc.LastCall().Path)

	_, err = c.CancelTask(ctx, "t1")
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", func() string { e, _ := types.AsError(err); return e.ServiceCode }())
}
