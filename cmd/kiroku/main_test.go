package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/kirokuforms/config"
	"github.com/BaSui01/kirokuforms/testutil"
	"github.com/BaSui01/kirokuforms/testutil/fixtures"
	"github.com/BaSui01/kirokuforms/testutil/mocks"
	"github.com/BaSui01/kirokuforms/types"
	"github.com/BaSui01/kirokuforms/webhook"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// useService 通过环境变量把 CLI 指向模拟服务
func useService(t *testing.T, svc *mocks.MockService) {
	t.Helper()
	t.Setenv("KIROKU_CLIENT_API_KEY", "test-key")
	t.Setenv("KIROKU_CLIENT_BASE_URL", svc.URL())
	t.Setenv("KIROKU_CLIENT_MAX_RETRIES", "0")
	t.Setenv("KIROKU_LOG_LEVEL", "error")
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "webhook")

	code, _, stderr = runCLI(t, "bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Unknown command: bogus")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "kiroku dev")
}

func TestRun_MissingAPIKey(t *testing.T) {
	t.Setenv("KIROKU_CLIENT_API_KEY", "")
	t.Setenv("KIROKU_API_KEY", "")
	t.Setenv("KIROKU_LOG_LEVEL", "error")

	code, _, stderr := runCLI(t, "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "api_key is required")
}

func TestRun_Create(t *testing.T) {
	svc := mocks.NewMockService(t)
	useService(t, svc)

	fieldsPath := filepath.Join(t.TempDir(), "fields.json")
	require.NoError(t, os.WriteFile(fieldsPath, []byte(`[{"type":"text","label":"Feedback","name":"feedback","required":true}]`), 0o600))

	code, stdout, stderr := runCLI(t, "create", "--title", "Review", "--fields", "@"+fieldsPath, "--priority", "high")
	require.Equal(t, 0, code, stderr)

	var task types.Task
	require.NoError(t, json.Unmarshal([]byte(stdout), &task))
	assert.True(t, strings.HasPrefix(task.TaskID, "task-"))
	assert.NotEmpty(t, task.FormURL)

	body := svc.LastCall().Body
	assert.Equal(t, "Review", body["title"])
	assert.Equal(t, "high", body["settings"].(map[string]any)["priority"])
}

func TestRun_CreateInvalidFields(t *testing.T) {
	code, _, stderr := runCLI(t, "create", "--fields", "not json")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid --fields")
}

func TestRun_VerifyAndWait(t *testing.T) {
	svc := mocks.NewMockService(t).WithAutoComplete(1, fixtures.VerificationSubmission(true))
	useService(t, svc)

	code, stdout, stderr := runCLI(t, "verify", "--data", `{"customer_name":"Ada Lovelace","order_total":42.5,"is_priority":true}`, "--wait")
	require.Equal(t, 0, code, stderr)

	var out struct {
		Task   types.Task     `json:"task"`
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "yes", out.Result["is_correct"])

	fields := svc.Calls()[0].Body["fields"].([]any)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"customer_name", "order_total", "is_priority", "is_correct", "comments"}, names)

	calls := svc.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	requestID := calls[0].Header.Get("X-Request-ID")
	assert.Regexp(t, `^[0-9a-f-]{36}$`, requestID)
	for _, c := range calls[1:] {
		assert.Equal(t, requestID, c.Header.Get("X-Request-ID"), "one request id per invocation")
	}
}

func TestRun_VerifyRequiresData(t *testing.T) {
	code, _, stderr := runCLI(t, "verify")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--data is required")
}

func TestRun_Watch(t *testing.T) {
	svc := mocks.NewMockService(t).WithAutoComplete(2, fixtures.VerificationSubmission(true))
	useService(t, svc)

	var stdout, stderr bytes.Buffer
	code := run(testutil.TestContext(t), []string{"watch", "--data", `{"customer_name":"Ada"}`, "--interval", "20ms"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rec types.Verification
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rec))
	assert.True(t, rec.Completed)
	assert.NotEmpty(t, rec.TaskID)
	assert.Equal(t, "yes", rec.Result["is_correct"])

	create := svc.Calls()[0]
	assert.Equal(t, "Human Verification Required", create.Body["title"])
	assert.Equal(t, "medium", create.Body["settings"].(map[string]any)["priority"])
	assert.GreaterOrEqual(t, svc.CallCount(), 3, "one create plus at least two sweeps")
}

func TestRun_WatchRequiresData(t *testing.T) {
	code, _, stderr := runCLI(t, "watch")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--data is required")
}

func TestRun_ResultListCancel(t *testing.T) {
	svc := mocks.NewMockService(t)
	useService(t, svc)
	svc.AddTask(mocks.MockTask{TaskID: "t1"})

	code, _, stderr := runCLI(t, "result", "--id", "t1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "pending")

	code, stdout, stderr := runCLI(t, "list", "--status", "pending")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "t1")
	assert.Contains(t, svc.LastCall().RawQuery, "status=pending")

	code, stdout, stderr = runCLI(t, "cancel", "--id", "t1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"canceled"`)

	svc.AddTask(mocks.MockTask{TaskID: "t2"})
	svc.CompleteTask("t2", map[string]any{"answer": "42"})
	code, stdout, stderr = runCLI(t, "result", "--id", "t2")
	require.Equal(t, 0, code, stderr)
	assert.JSONEq(t, `{"answer":"42"}`, stdout)
}

func TestWebhookHandler(t *testing.T) {
	a := &app{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	t.Setenv("KIROKU_LOG_LEVEL", "error")
	t.Setenv("KIROKU_CLIENT_WEBHOOK_SECRET", "s3cret")
	require.NoError(t, a.setup(""))
	t.Cleanup(a.close)

	h := a.webhookHandler()
	body := fixtures.CompletedEvent("task-1", fixtures.FeedbackSubmission())

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, webhook.Sign("s3cret", body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kirokuforms_webhook_events_total")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDecodeOrderedData(t *testing.T) {
	data, err := decodeOrderedData([]byte(`{"zeta":"z","alpha":1.5,"ok":false,"nested":{"a":1}}`))
	require.NoError(t, err)

	require.Len(t, data, 4)
	assert.Equal(t, "zeta", data[0].Key)
	assert.Equal(t, "alpha", data[1].Key)
	assert.Equal(t, "1.5", data[1].Value.String())
	assert.Equal(t, "false", data[2].Value.String())
	assert.Equal(t, `{"a":1}`, data[3].Value.String())

	_, err = decodeOrderedData([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestReadArg(t *testing.T) {
	v, err := readArg(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(v))

	_, err = readArg("@" + filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := config.DefaultLogConfig()
		cfg.Format = format
		cfg.OutputPaths = []string{"stderr"}
		assert.NotNil(t, initLogger(cfg))
	}
}
