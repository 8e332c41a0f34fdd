// MockService 是 KirokuForms MCP API 的 httptest 模拟实现。
//
// 支持任务创建、状态轮询、列表、取消，以及故障注入（非 2xx、原始响应体、服务错误）。
package mocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/BaSui01/kirokuforms/types"
)

// BasePath 模拟服务挂载的路径前缀
const BasePath = "/mcp"

// MockTask 模拟服务端保存的任务
type MockTask struct {
	TaskID      string
	HITLTaskID  string
	Title       string
	Status      types.TaskStatus
	FormURL     string
	CallbackURL string
	Submission  map[string]any
	Polls       int

	completeAfter int
	completeData  map[string]any
}

// ServiceCall 记录单次请求
type ServiceCall struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     map[string]any
}

type fault struct {
	status int
	body   string
}

// MockService 模拟 KirokuForms 服务
type MockService struct {
	mu sync.Mutex

	server *httptest.Server
	apiKey string

	tasks  map[string]*MockTask
	order  []string
	calls  []ServiceCall
	nextID int

	// 故障注入：按顺序消费
	faults []fault

	// 新建任务在第 N 次轮询时自动完成
	autoCompleteAfter int
	autoCompleteData  map[string]any
}

// NewMockService 创建并启动模拟服务，测试结束时自动关闭
func NewMockService(t interface{ Cleanup(func()) }) *MockService {
	m := &MockService{
		apiKey: "test-key",
		tasks:  make(map[string]*MockTask),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/request-human-review", m.handleCreate)
	mux.HandleFunc("GET /resources/hitl/tasks", m.handleList)
	mux.HandleFunc("GET /resources/hitl/tasks/{id}", m.handleGet)
	mux.HandleFunc("POST /resources/hitl/tasks/{id}/cancel", m.handleCancel)

	m.server = httptest.NewServer(m.intercept(http.StripPrefix(BasePath, mux)))
	t.Cleanup(m.server.Close)
	return m
}

// --- Builder 方法 ---

// WithAPIKey 设置期望的 Bearer Token
func (m *MockService) WithAPIKey(key string) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = key
	return m
}

// WithAutoComplete 之后创建的任务在第 polls 次状态查询时变为 completed
func (m *MockService) WithAutoComplete(polls int, data map[string]any) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoCompleteAfter = polls
	m.autoCompleteData = data
	return m
}

// FailNext 接下来 n 个请求返回 status 与纯文本响应体
func (m *MockService) FailNext(n, status int) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.faults = append(m.faults, fault{status: status, body: http.StatusText(status)})
	}
	return m
}

// RespondRaw 下一个请求以 200 返回原始响应体
func (m *MockService) RespondRaw(body string) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, fault{status: http.StatusOK, body: body})
	return m
}

// --- 状态操作 ---

// URL 客户端应使用的 base_url
func (m *MockService) URL() string { return m.server.URL + BasePath }

// AddTask 直接写入一个任务
func (m *MockService) AddTask(task MockTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := task
	if t.Status == "" {
		t.Status = types.TaskStatusPending
	}
	if _, ok := m.tasks[t.TaskID]; !ok {
		m.order = append(m.order, t.TaskID)
	}
	m.tasks[t.TaskID] = &t
}

// CompleteTask 将任务标记为已完成并设置提交数据
func (m *MockService) CompleteTask(taskID string, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[taskID]; ok {
		t.Status = types.TaskStatusCompleted
		t.Submission = data
	}
}

// SetStatus 修改任务状态
func (m *MockService) SetStatus(taskID string, status types.TaskStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[taskID]; ok {
		t.Status = status
	}
}

// Task 返回任务快照
func (m *MockService) Task(taskID string) (MockTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return MockTask{}, false
	}
	return *t, true
}

// Calls 返回请求记录副本
func (m *MockService) Calls() []ServiceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ServiceCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回请求次数
func (m *MockService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall 返回最后一次请求
func (m *MockService) LastCall() ServiceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ServiceCall{}
	}
	return m.calls[len(m.calls)-1]
}

// --- HTTP 处理 ---

func (m *MockService) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := ServiceCall{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
		}
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(raw))
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err == nil {
				call.Body = body
			}
		}

		m.mu.Lock()
		m.calls = append(m.calls, call)
		var f *fault
		if len(m.faults) > 0 {
			f = &m.faults[0]
			m.faults = m.faults[1:]
		}
		apiKey := m.apiKey
		m.mu.Unlock()

		if f != nil {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+apiKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *MockService) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, "INVALID_REQUEST", err.Error())
		return
	}

	m.mu.Lock()
	m.nextID++
	n := m.nextID
	taskID := fmt.Sprintf("task-%d", n)
	var callback string
	if settings, ok := body["settings"].(map[string]any); ok {
		if id, ok := settings["taskId"].(string); ok && id != "" {
			taskID = id
		}
		callback, _ = settings["callbackUrl"].(string)
	}
	title, _ := body["title"].(string)
	task := &MockTask{
		TaskID:        taskID,
		HITLTaskID:    "hitl-" + strconv.Itoa(n),
		Title:         title,
		Status:        types.TaskStatusPending,
		FormURL:       "https://forms.example.com/f/" + taskID,
		CallbackURL:   callback,
		completeAfter: m.autoCompleteAfter,
		completeData:  m.autoCompleteData,
	}
	m.tasks[taskID] = task
	m.order = append(m.order, taskID)
	m.mu.Unlock()

	writeSuccess(w, map[string]any{
		"taskId":     task.TaskID,
		"hitlTaskId": task.HITLTaskID,
		"formId":     "form-" + strconv.Itoa(n),
		"formUrl":    task.FormURL,
	})
}

func (m *MockService) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		writeFailure(w, "TASK_NOT_FOUND", "Task "+id+" not found")
		return
	}
	t.Polls++
	if t.Status == types.TaskStatusPending && t.completeAfter > 0 && t.Polls >= t.completeAfter {
		t.Status = types.TaskStatusCompleted
		t.Submission = t.completeData
	}
	detail := taskDetail(t)
	m.mu.Unlock()

	writeSuccess(w, detail)
}

func (m *MockService) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	status := types.TaskStatus(q.Get("status"))

	m.mu.Lock()
	var all []map[string]any
	for _, id := range m.order {
		t := m.tasks[id]
		if status != "" && t.Status != status {
			continue
		}
		all = append(all, taskDetail(t))
	}
	m.mu.Unlock()

	page := []map[string]any{}
	for i := offset; i < len(all) && (limit <= 0 || i < offset+limit); i++ {
		page = append(page, all[i])
	}
	writeSuccess(w, map[string]any{
		"tasks":  page,
		"total":  len(all),
		"limit":  limit,
		"offset": offset,
	})
}

func (m *MockService) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		writeFailure(w, "TASK_NOT_FOUND", "Task "+id+" not found")
		return
	}
	if t.Status.IsTerminal() {
		status := t.Status
		m.mu.Unlock()
		writeFailure(w, "INVALID_STATE", "Task is already "+strings.ToLower(string(status)))
		return
	}
	t.Status = types.TaskStatusCanceled
	detail := taskDetail(t)
	m.mu.Unlock()

	writeSuccess(w, detail)
}

func taskDetail(t *MockTask) map[string]any {
	d := map[string]any{
		"taskId":     t.TaskID,
		"hitlTaskId": t.HITLTaskID,
		"status":     string(t.Status),
		"title":      t.Title,
		"formUrl":    t.FormURL,
	}
	if t.CallbackURL != "" {
		d["callbackUrl"] = t.CallbackURL
	}
	if t.Status == types.TaskStatusCompleted {
		d["submission"] = map[string]any{"data": t.Submission}
	}
	return d
}

func writeSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]any{"code": code, "message": message},
	})
}
