package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/events"
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/state"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// scriptedProvider отдаёт заранее заданные ответы и записывает,
// с какими схемами инструментов его вызывали.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []llm.Message
	calls   int
	schemas [][]llm.ToolSchema
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llm.Message, schemas []llm.ToolSchema, opts ...llm.GenerateOption) (llm.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.schemas = append(p.schemas, schemas)
	idx := p.calls
	p.calls++
	if idx >= len(p.replies) {
		return llm.Message{Role: llm.RoleAssistant, Content: "out of script"}, nil
	}
	return p.replies[idx], nil
}

// orderTool записывает порядок и аргументы своих вызовов.
type orderTool struct {
	name string
	mu   *sync.Mutex
	log  *[]string

	// block != nil заставляет Execute ждать отмены контекста
	block chan struct{}
}

func (t *orderTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        t.name,
		Description: "test tool",
		Tier:        tools.TierCore,
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]interface{}{
				"step": map[string]interface{}{"type": "string"},
			},
		},
	}
}

func (t *orderTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	if t.block != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.block:
		}
	}

	var args struct {
		Step string `json:"step"`
	}
	_ = json.Unmarshal([]byte(argsJSON), &args)

	t.mu.Lock()
	*t.log = append(*t.log, args.Step)
	t.mu.Unlock()
	return `{"status":"success"}`, nil
}

// recordingEmitter накапливает события для проверок.
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *recordingEmitter) Emit(ctx context.Context, event events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) statuses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		if ev.Type == events.EventStatus {
			out = append(out, ev.Data.(events.StatusData).Status)
		}
	}
	return out
}

func (e *recordingEmitter) has(t events.EventType) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if ev.Type == t {
			return true
		}
	}
	return false
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Args: args}
}

func newOrchestrator(t *testing.T, provider llm.Provider, reg *tools.Registry, agentCfg config.AgentConfig) (*Orchestrator, *recordingEmitter) {
	t.Helper()
	st := state.NewCoreState(&config.AppConfig{}, nil)
	st.SetToolsRegistry(reg)

	o, err := New(Config{
		Provider:     provider,
		Registry:     reg,
		State:        st,
		Agent:        agentCfg,
		SystemPrompt: "You edit documents.",
	})
	require.NoError(t, err)

	em := &recordingEmitter{}
	o.SetEmitter(em)
	return o, em
}

// TestProcessMessageNoTools: ответ без tool calls завершает цикл
// за один запрос.
func TestProcessMessageNoTools(t *testing.T) {
	provider := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, Content: "Hello!"},
	}}
	o, em := newOrchestrator(t, provider, tools.NewRegistry(), config.AgentConfig{})

	result, err := o.ProcessMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result)
	assert.Equal(t, 1, provider.calls)
	assert.True(t, em.has(events.EventDone))
	assert.Contains(t, em.statuses(), StatusReady)

	// История: user + assistant
	hist := o.GetHistory()
	require.Len(t, hist, 2)
	assert.Equal(t, llm.RoleUser, hist[0].Role)
	assert.Equal(t, llm.RoleAssistant, hist[1].Role)
}

// TestToolCallsExecutedInOrder: K вызовов одного ответа выполняются
// строго в порядке поступления, по одному за раз.
func TestToolCallsExecutedInOrder(t *testing.T) {
	var mu sync.Mutex
	var log []string
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&orderTool{name: "edit_step", mu: &mu, log: &log}))

	provider := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			toolCall("c1", "edit_step", `{"step":"first"}`),
			toolCall("c2", "edit_step", `{"step":"second"}`),
			toolCall("c3", "edit_step", `{"step":"third"}`),
		}},
		{Role: llm.RoleAssistant, Content: "done"},
	}}

	o, em := newOrchestrator(t, provider, reg, config.AgentConfig{})

	result, err := o.ProcessMessage(context.Background(), "edit it")
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, []string{"first", "second", "third"}, log)
	assert.Contains(t, em.statuses(), "Running: edit_step")

	// История: user, assistant(tool calls), 3 tool результата, assistant
	hist := o.GetHistory()
	require.Len(t, hist, 6)
	assert.Equal(t, "c1", hist[2].ToolCallID)
	assert.Equal(t, "c2", hist[3].ToolCallID)
	assert.Equal(t, "c3", hist[4].ToolCallID)
}

// TestAsyncToolKeepsOrder: async инструмент не ломает порядок
// результатов.
func TestAsyncToolKeepsOrder(t *testing.T) {
	var mu sync.Mutex
	var log []string
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&orderTool{name: "slow_step", mu: &mu, log: &log}))
	require.NoError(t, reg.Register(&orderTool{name: "fast_step", mu: &mu, log: &log}))

	provider := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			toolCall("c1", "slow_step", `{"step":"a"}`),
			toolCall("c2", "fast_step", `{"step":"b"}`),
		}},
		{Role: llm.RoleAssistant, Content: "done"},
	}}

	o, _ := newOrchestrator(t, provider, reg, config.AgentConfig{
		AsyncTools: []string{"slow_step"},
	})

	_, err := o.ProcessMessage(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, log)
}

// TestMaxToolRoundsForcesFinalAnswer: после исчерпания лимита раундов
// финальный запрос уходит без схем; всего запросов ровно лимит+1.
func TestMaxToolRoundsForcesFinalAnswer(t *testing.T) {
	var mu sync.Mutex
	var log []string
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&orderTool{name: "edit_step", mu: &mu, log: &log}))

	// Модель зациклилась: каждый раунд просит инструмент
	loop := llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
		toolCall("c", "edit_step", `{"step":"again"}`),
	}}
	provider := &scriptedProvider{replies: []llm.Message{
		loop, loop,
		{Role: llm.RoleAssistant, Content: "forced summary"},
	}}

	o, _ := newOrchestrator(t, provider, reg, config.AgentConfig{MaxToolRounds: 2})

	result, err := o.ProcessMessage(context.Background(), "loop")
	require.NoError(t, err)
	assert.Equal(t, "forced summary", result)
	require.Equal(t, 3, provider.calls)

	// Первые два запроса со схемами, финальный — без
	assert.NotEmpty(t, provider.schemas[0])
	assert.NotEmpty(t, provider.schemas[1])
	assert.Empty(t, provider.schemas[2])
}

// TestFinalRoundDropsToolCalls: если модель прислала tool calls на
// финальном раунде (без схем), они не выполняются и не записываются
// в историю — иначе там остались бы вызовы без RoleTool ответов.
func TestFinalRoundDropsToolCalls(t *testing.T) {
	var mu sync.Mutex
	var log []string
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&orderTool{name: "edit_step", mu: &mu, log: &log}))

	loop := llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
		toolCall("c", "edit_step", `{"step":"again"}`),
	}}
	// Модель игнорирует отсутствие схем и просит инструмент даже
	// в финальном раунде
	provider := &scriptedProvider{replies: []llm.Message{
		loop,
		{Role: llm.RoleAssistant, Content: "stubborn", ToolCalls: []llm.ToolCall{
			toolCall("c-final", "edit_step", `{"step":"final"}`),
		}},
	}}

	o, em := newOrchestrator(t, provider, reg, config.AgentConfig{MaxToolRounds: 1})

	result, err := o.ProcessMessage(context.Background(), "loop")
	require.NoError(t, err)
	assert.Equal(t, "stubborn", result)
	assert.Equal(t, 2, provider.calls)
	assert.True(t, em.has(events.EventDone))

	// Инструмент выполнился только в первом раунде
	assert.Equal(t, []string{"again"}, log)

	// Последнее сообщение истории — assistant без tool calls
	hist := o.GetHistory()
	last := hist[len(hist)-1]
	assert.Equal(t, llm.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

// TestStopDuringTool: Stop() прерывает выполнение инструмента,
// ProcessMessage возвращается без ошибки, UI получает EventStopped.
func TestStopDuringTool(t *testing.T) {
	var mu sync.Mutex
	var log []string
	block := make(chan struct{})
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&orderTool{name: "hang", mu: &mu, log: &log, block: block}))

	provider := &scriptedProvider{replies: []llm.Message{
		{Role: llm.RoleAssistant, Content: "working", ToolCalls: []llm.ToolCall{
			toolCall("c1", "hang", `{}`),
		}},
	}}

	o, em := newOrchestrator(t, provider, reg, config.AgentConfig{
		AsyncTools: []string{"hang"},
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		o.Stop()
	}()

	result, err := o.ProcessMessage(context.Background(), "hang it")
	require.NoError(t, err)
	assert.Equal(t, "working", result)
	assert.True(t, em.has(events.EventStopped))
	assert.Contains(t, em.statuses(), StatusStopped)
}

// TestProviderErrorSurfaces: ошибка модели возвращается с EventError.
func TestProviderErrorSurfaces(t *testing.T) {
	provider := &failingProvider{}
	o, em := newOrchestrator(t, provider, tools.NewRegistry(), config.AgentConfig{})

	_, err := o.ProcessMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, em.has(events.EventError))
	assert.Contains(t, em.statuses(), StatusError)
}

type failingProvider struct{}

func (p *failingProvider) Generate(ctx context.Context, messages []llm.Message, schemas []llm.ToolSchema, opts ...llm.GenerateOption) (llm.Message, error) {
	return llm.Message{}, assert.AnError
}

// TestNewValidatesDependencies проверяет обязательные зависимости.
func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Provider: &failingProvider{}})
	assert.Error(t, err)
}
