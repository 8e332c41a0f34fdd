package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/kirokuforms/kiroku"
	"github.com/BaSui01/kirokuforms/types"
)

// =============================================================================
// 📝 create / verify
// =============================================================================

// taskFlags create 与 verify 共享的任务参数
type taskFlags struct {
	configPath  string
	title       string
	description string
	template    string
	expiration  string
	priority    string
	taskID      string
	callbackURL string
	initialData string
	wait        bool
	timeout     time.Duration
}

func (f *taskFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.StringVar(&f.title, "title", "", "Task title")
	fs.StringVar(&f.description, "description", "", "Task description")
	fs.StringVar(&f.template, "template", "", "Template ID")
	fs.StringVar(&f.expiration, "expiration", "", "Expiration (e.g. 24h)")
	fs.StringVar(&f.priority, "priority", string(types.PriorityMedium), "Priority: low, medium, high")
	fs.StringVar(&f.taskID, "task-id", "", "External task ID (generated when empty)")
	fs.StringVar(&f.callbackURL, "callback-url", "", "Completion webhook URL")
	fs.StringVar(&f.initialData, "initial-data", "", "Initial form data as JSON object or @file")
	fs.BoolVar(&f.wait, "wait", false, "Block until the task completes")
	fs.DurationVar(&f.timeout, "timeout", 0, "Wait timeout (default from config)")
}

func (f *taskFlags) request() (kiroku.CreateTaskRequest, error) {
	req := kiroku.CreateTaskRequest{
		Title:       f.title,
		Description: f.description,
		TemplateID:  f.template,
		Expiration:  f.expiration,
		Priority:    types.Priority(f.priority),
		TaskID:      f.taskID,
		CallbackURL: f.callbackURL,
	}
	if f.initialData != "" {
		raw, err := readArg(f.initialData)
		if err != nil {
			return req, err
		}
		if err := json.Unmarshal(raw, &req.InitialData); err != nil {
			return req, fmt.Errorf("invalid --initial-data: %w", err)
		}
	}
	return req, nil
}

func (f *taskFlags) waitOptions() []kiroku.WaitOption {
	if f.timeout > 0 {
		return []kiroku.WaitOption{kiroku.WithTimeout(f.timeout)}
	}
	return nil
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var tf taskFlags
	tf.register(fs)
	fieldsArg := fs.String("fields", "", "Field definitions as JSON array or @file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := tf.request()
	if err != nil {
		return err
	}
	if *fieldsArg != "" {
		raw, err := readArg(*fieldsArg)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &req.Fields); err != nil {
			return fmt.Errorf("invalid --fields: %w", err)
		}
	}

	if err := a.setup(tf.configPath); err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	task, err := client.CreateTask(ctx, req)
	if err != nil {
		return err
	}
	return a.finishTask(ctx, client, task, tf)
}

func runVerify(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var tf taskFlags
	tf.register(fs)
	dataArg := fs.String("data", "", "Data to verify as JSON object or @file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataArg == "" {
		return fmt.Errorf("--data is required")
	}

	raw, err := readArg(*dataArg)
	if err != nil {
		return err
	}
	data, err := decodeOrderedData(raw)
	if err != nil {
		return fmt.Errorf("invalid --data: %w", err)
	}
	req, err := tf.request()
	if err != nil {
		return err
	}

	if err := a.setup(tf.configPath); err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	task, err := client.CreateVerificationTask(ctx, data, req)
	if err != nil {
		return err
	}
	return a.finishTask(ctx, client, task, tf)
}

// finishTask 输出创建结果，--wait 时继续等待并输出提交数据
func (a *app) finishTask(ctx context.Context, client *kiroku.Client, task *types.Task, tf taskFlags) error {
	a.logger.Info("task created",
		zap.String("task_id", task.TaskID),
		zap.String("form_url", task.FormURL),
	)
	if !tf.wait {
		return writeJSON(a.stdout, task)
	}

	result, err := client.GetTaskResult(ctx, task.TaskID, tf.waitOptions()...)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, map[string]any{
		"task":   task,
		"result": result,
	})
}

// =============================================================================
// 🔍 result / list / cancel
// =============================================================================

func runResult(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("result", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path to config file")
	id := fs.String("id", "", "Task ID (required)")
	wait := fs.Bool("wait", false, "Poll until the task completes")
	timeout := fs.Duration("timeout", 0, "Wait timeout (default from config)")
	interval := fs.Duration("interval", 0, "Poll interval (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	if err := a.setup(*configPath); err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	opts := []kiroku.WaitOption{}
	if !*wait {
		opts = append(opts, kiroku.NoWait())
	}
	if *timeout > 0 {
		opts = append(opts, kiroku.WithTimeout(*timeout))
	}
	if *interval > 0 {
		opts = append(opts, kiroku.WithPollInterval(*interval))
	}

	result, err := client.GetTaskResult(ctx, *id, opts...)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, result)
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path to config file")
	status := fs.String("status", "", "Filter by status: pending, completed, expired, canceled")
	limit := fs.Int("limit", 10, "Page size")
	offset := fs.Int("offset", 0, "Page offset")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.setup(*configPath); err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	page, err := client.ListTasks(ctx, kiroku.ListOptions{
		Status: types.TaskStatus(*status),
		Limit:  *limit,
		Offset: *offset,
	})
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, page)
}

func runCancel(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path to config file")
	id := fs.String("id", "", "Task ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	if err := a.setup(*configPath); err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	detail, err := client.CancelTask(ctx, *id)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, detail)
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// readArg 读取参数值，"@path" 表示从文件读取，"@-" 表示标准输入
func readArg(v string) ([]byte, error) {
	if !strings.HasPrefix(v, "@") {
		return []byte(v), nil
	}
	path := strings.TrimPrefix(v, "@")
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeOrderedData 解析顶层 JSON 对象并保留键的出现顺序
func decodeOrderedData(raw []byte) (types.Data, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	data := types.Data{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		switch v.(type) {
		case map[string]any, []any:
			// 嵌套结构以 JSON 文本展示
			nested, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			v = string(nested)
		}
		data = append(data, types.Datum{Key: key, Value: types.ValueOf(v)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
