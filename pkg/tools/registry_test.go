package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeTool — минимальный инструмент для тестов реестра.
type fakeTool struct {
	def      ToolDefinition
	result   string
	err      error
	panics   bool
	lastArgs string
	calls    int
}

func (f *fakeTool) Definition() ToolDefinition { return f.def }

func (f *fakeTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	f.calls++
	f.lastArgs = argsJSON
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func objSchema(props map[string]any, required ...interface{}) JSONSchema {
	s := JSONSchema{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func newTestTool(name string) *fakeTool {
	return &fakeTool{
		def: ToolDefinition{
			Name:        name,
			Description: "test tool",
			Parameters:  objSchema(map[string]any{"content": map[string]any{"type": "string"}}),
			Tier:        TierCore,
		},
		result: `{"status":"success"}`,
	}
}

func decodeError(t *testing.T, result string) string {
	t.Helper()
	var parsed map[string]string
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("result is not valid JSON: %q", result)
	}
	if parsed["status"] != "error" {
		t.Fatalf("expected error status, got: %q", result)
	}
	return parsed["error"]
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		def     ToolDefinition
		wantErr bool
	}{
		{
			name:    "valid definition",
			def:     ToolDefinition{Name: "ok", Parameters: objSchema(map[string]any{})},
			wantErr: false,
		},
		{
			name:    "empty name",
			def:     ToolDefinition{Parameters: objSchema(map[string]any{})},
			wantErr: true,
		},
		{
			name:    "nil parameters",
			def:     ToolDefinition{Name: "bad"},
			wantErr: true,
		},
		{
			name:    "type is not object",
			def:     ToolDefinition{Name: "bad", Parameters: JSONSchema{"type": "string"}},
			wantErr: true,
		},
		{
			name: "required is not array of strings",
			def: ToolDefinition{
				Name:       "bad",
				Parameters: JSONSchema{"type": "object", "required": []interface{}{1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(&fakeTool{def: tt.def})
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExecuteCallUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.ExecuteCall(context.Background(), "nope", "{}", "")
	msg := decodeError(t, result)
	if msg == "" {
		t.Error("expected error message for unknown tool")
	}
}

func TestExecuteCallDocTypeMismatch(t *testing.T) {
	r := NewRegistry()
	tool := newTestTool("text_only")
	tool.def.DocTypes = []string{"text"}
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	// Несовместимый тип документа — структурная ошибка, инструмент не вызван
	result := r.ExecuteCall(context.Background(), "text_only", "{}", "spreadsheet")
	decodeError(t, result)
	if tool.calls != 0 {
		t.Error("tool must not be executed on doc type mismatch")
	}

	// Совместимый тип — выполняется
	result = r.ExecuteCall(context.Background(), "text_only", "{}", "text")
	if result != `{"status":"success"}` {
		t.Errorf("unexpected result: %q", result)
	}
}

func TestExecuteCallFiltersUndeclaredArgs(t *testing.T) {
	r := NewRegistry()
	tool := newTestTool("edit")
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	// image_model не объявлен в схеме — должен быть отброшен, а не вызвать ошибку
	r.ExecuteCall(context.Background(), "edit", `{"content":"x","image_model":"foo"}`, "")

	var args map[string]any
	if err := json.Unmarshal([]byte(tool.lastArgs), &args); err != nil {
		t.Fatalf("tool received invalid JSON: %q", tool.lastArgs)
	}
	if _, ok := args["image_model"]; ok {
		t.Error("undeclared argument was not filtered out")
	}
	if args["content"] != "x" {
		t.Errorf("declared argument lost: %v", args)
	}
}

func TestExecuteCallMissingRequired(t *testing.T) {
	r := NewRegistry()
	tool := newTestTool("strict")
	tool.def.Parameters = objSchema(
		map[string]any{"content": map[string]any{"type": "string"}},
		"content",
	)
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	result := r.ExecuteCall(context.Background(), "strict", "{}", "")
	decodeError(t, result)
	if tool.calls != 0 {
		t.Error("tool must not run with missing required argument")
	}
}

func TestExecuteCallInvalidJSON(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newTestTool("edit")); err != nil {
		t.Fatal(err)
	}
	result := r.ExecuteCall(context.Background(), "edit", `{broken`, "")
	decodeError(t, result)
}

func TestExecuteCallToolErrorAndPanic(t *testing.T) {
	r := NewRegistry()

	failing := newTestTool("failing")
	failing.err = errors.New("disk on fire")
	if err := r.Register(failing); err != nil {
		t.Fatal(err)
	}

	panicking := newTestTool("panicking")
	panicking.panics = true
	if err := r.Register(panicking); err != nil {
		t.Fatal(err)
	}

	// Ошибка инструмента -> структурный результат, не Go ошибка
	msg := decodeError(t, r.ExecuteCall(context.Background(), "failing", "{}", ""))
	if msg != "disk on fire" {
		t.Errorf("unexpected error message: %q", msg)
	}

	// Panic инструмента перехватывается
	decodeError(t, r.ExecuteCall(context.Background(), "panicking", "{}", ""))
}

func TestCacheInvalidation(t *testing.T) {
	r := NewRegistry()
	tool := newTestTool("apply_edit")
	tool.def.Mutating = true
	if err := r.Register(tool); err != nil {
		t.Fatal(err)
	}

	invalidated := 0
	r.SetCacheInvalidator(func() { invalidated++ })

	r.ExecuteCall(context.Background(), "apply_edit", "{}", "")
	if invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", invalidated)
	}

	// Batch режим подавляет инвалидацию
	r.SetBatchMode(true)
	r.ExecuteCall(context.Background(), "apply_edit", "{}", "")
	if invalidated != 1 {
		t.Errorf("batch mode must suppress invalidation, got %d", invalidated)
	}

	r.SetBatchMode(false)
	r.ExecuteCall(context.Background(), "apply_edit", "{}", "")
	if invalidated != 2 {
		t.Errorf("expected 2 invalidations after batch off, got %d", invalidated)
	}
}

func TestSchemasForFiltersTierAndDocType(t *testing.T) {
	r := NewRegistry()

	core := newTestTool("core_tool")
	core.def.Tier = TierCore

	ext := newTestTool("ext_tool")
	ext.def.Tier = TierExtended
	ext.def.Intent = "insert table"

	sheetOnly := newTestTool("sheet_tool")
	sheetOnly.def.DocTypes = []string{"spreadsheet"}

	for _, tool := range []*fakeTool{core, ext, sheetOnly} {
		if err := r.Register(tool); err != nil {
			t.Fatal(err)
		}
	}

	schemas := r.SchemasFor("text", TierCore)
	if len(schemas) != 1 || schemas[0].Name != "core_tool" {
		t.Errorf("unexpected core text schemas: %+v", schemas)
	}

	// Без фильтров — все в порядке регистрации
	all := r.SchemasFor("", "")
	if len(all) != 3 || all[0].Name != "core_tool" || all[2].Name != "sheet_tool" {
		t.Errorf("unexpected full schema list: %+v", all)
	}
}

func TestSummaries(t *testing.T) {
	r := NewRegistry()

	short := newTestTool("short_tool")
	short.def.Description = "короткое описание"
	short.def.Tier = TierCore

	long := newTestTool("long_tool")
	// Многобайтовые руны: усечение не должно резать символ пополам
	long.def.Description = strings.Repeat("ы", 130)
	long.def.Tier = TierExtended
	long.def.Intent = "long things"

	for _, tool := range []*fakeTool{short, long} {
		if err := r.Register(tool); err != nil {
			t.Fatal(err)
		}
	}

	summaries := r.Summaries("", "")
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Name != "short_tool" || summaries[0].Description != "короткое описание" {
		t.Errorf("unexpected first summary: %+v", summaries[0])
	}
	if summaries[1].Tier != TierExtended || summaries[1].Intent != "long things" {
		t.Errorf("tier/intent lost: %+v", summaries[1])
	}
	if got := summaries[1].Description; got != strings.Repeat("ы", 120) {
		t.Errorf("expected 120-rune truncation, got %d runes, valid utf8: %v",
			len([]rune(got)), utf8.ValidString(got))
	}

	// Фильтр по уровню
	coreOnly := r.Summaries("", TierCore)
	if len(coreOnly) != 1 || coreOnly[0].Name != "short_tool" {
		t.Errorf("tier filter failed: %+v", coreOnly)
	}
}

func TestNamesByIntent(t *testing.T) {
	r := NewRegistry()
	ext := newTestTool("table_tool")
	ext.def.Tier = TierExtended
	ext.def.Intent = "table"
	if err := r.Register(ext); err != nil {
		t.Fatal(err)
	}

	names := r.NamesByIntent("", "insert a TABLE into the report")
	if len(names) != 1 || names[0] != "table_tool" {
		t.Errorf("intent match failed: %v", names)
	}

	if names := r.NamesByIntent("", "draw a chart"); len(names) != 0 {
		t.Errorf("unexpected intent match: %v", names)
	}
}

// TestNamesByIntentAgentTier: agent уровень подключается по intent
// наравне с extended; core инструменты по intent не подбираются.
func TestNamesByIntentAgentTier(t *testing.T) {
	r := NewRegistry()

	ag := newTestTool("snapshot_tool")
	ag.def.Tier = TierAgent
	ag.def.Intent = "snapshot"

	core := newTestTool("core_tool")
	core.def.Tier = TierCore
	core.def.Intent = "snapshot"

	for _, tool := range []*fakeTool{ag, core} {
		if err := r.Register(tool); err != nil {
			t.Fatal(err)
		}
	}

	names := r.NamesByIntent("", "сделай snapshot перед правкой")
	if len(names) != 1 || names[0] != "snapshot_tool" {
		t.Errorf("agent intent match failed: %v", names)
	}
}
