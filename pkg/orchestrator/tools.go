package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/mnemo/internal/observability"
	"github.com/harun/mnemo/pkg/toolexec"
)

const noActiveStoreMsg = "No memory store is active. Use store_use with a store name to open one."

// StoreUse activates the named store and reports the outcome as agent-facing
// text.
func (o *Orchestrator) StoreUse(ctx context.Context, name string) string {
	token, err := o.Activate(ctx, name)
	if err != nil {
		observability.RecordToolExecution("store_use", false)
		return fmt.Sprintf("Error: failed to activate store: %v", err)
	}
	observability.RecordToolExecution("store_use", true)
	return fmt.Sprintf("Now using memory store %q.", token)
}

// StoreSearch queries the active store and renders matches as a numbered
// list with dates and relevance scores.
func (o *Orchestrator) StoreSearch(ctx context.Context, query string, limit int) string {
	store, _, identity, ok := o.active()
	if !ok {
		observability.RecordToolExecution("store_search", false)
		return noActiveStoreMsg
	}
	query = strings.TrimSpace(query)
	if query == "" {
		observability.RecordToolExecution("store_search", false)
		return "Error: query is required."
	}
	if limit <= 0 {
		limit = o.opts.MaxMemories
	}

	records, err := store.SearchHybrid(ctx, EscapeQuery(query), limit)
	if err != nil {
		observability.RecordToolExecution("store_search", false)
		return fmt.Sprintf("Error: search failed: %v", err)
	}
	observability.RecordToolExecution("store_search", true)

	if len(records) == 0 {
		return fmt.Sprintf("No memories in store %q match %q.", identity, query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories in store %q:\n", len(records), identity)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. [%s] (%.2f) %s\n", i+1, r.CreatedAt.Format("2006-01-02"), r.Score, r.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// StoreAdd saves content to the active store, bypassing the ingest gate.
// memoryType tags the record; empty defaults to "manual".
func (o *Orchestrator) StoreAdd(ctx context.Context, content, memoryType string) string {
	store, _, identity, ok := o.active()
	if !ok {
		observability.RecordToolExecution("store_add", false)
		return noActiveStoreMsg
	}
	content = strings.TrimSpace(content)
	if content == "" {
		observability.RecordToolExecution("store_add", false)
		return "Error: content is required."
	}
	if memoryType == "" {
		memoryType = "manual"
	}

	id, err := store.Add(ctx, content, map[string]string{
		"type":   memoryType,
		"source": "tool",
		"store":  identity,
	})
	if err != nil {
		observability.RecordToolExecution("store_add", false)
		return fmt.Sprintf("Error: failed to save memory: %v", err)
	}
	observability.RecordToolExecution("store_add", true)
	return fmt.Sprintf("Saved memory %s to store %q.", id, identity)
}

// StoreStats reports the active store's record count.
func (o *Orchestrator) StoreStats(ctx context.Context) string {
	store, _, identity, ok := o.active()
	if !ok {
		observability.RecordToolExecution("store_stats", false)
		return noActiveStoreMsg
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		observability.RecordToolExecution("store_stats", false)
		return fmt.Sprintf("Error: failed to read store stats: %v", err)
	}
	observability.RecordToolExecution("store_stats", true)
	observability.SetRecordsTotal(stats.Total)
	return fmt.Sprintf("Store %q holds %d memories.", identity, stats.Total)
}

// JudgeWorthSaving runs the save-worthiness judge and renders the verdict
// as agent-facing text.
func (o *Orchestrator) JudgeWorthSaving(ctx context.Context, content string) string {
	j := o.Judge(ctx, content)
	observability.RecordToolExecution("judge_worth_saving", true)

	switch j.Verdict {
	case VerdictWorthy:
		return "Worth saving: " + j.Reason + "."
	case VerdictDuplicate:
		return fmt.Sprintf("Duplicate: %s. Existing memory: %q", j.Reason, j.Conflict)
	case VerdictUnjudgeable:
		return "Cannot judge: " + j.Reason + "."
	default:
		return "Not worth saving: " + j.Reason + "."
	}
}

// RegisterTools registers the memory tool surface on the executor.
func (o *Orchestrator) RegisterTools(executor *toolexec.Executor) error {
	defs := []toolexec.ToolDefinition{
		{
			Name:        "store_use",
			Description: "Open a named memory store and make it the active one. Creates the store on first use.",
			Parameters: []toolexec.ToolParameter{
				{Name: "name", Type: "string", Description: "Store name; sanitized to a lowercase token", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				name, _ := params["name"].(string)
				return o.StoreUse(ctx, name), nil
			},
		},
		{
			Name:        "store_search",
			Description: "Search the active memory store for relevant memories.",
			Parameters: []toolexec.ToolParameter{
				{Name: "query", Type: "string", Description: "Free-text search query", Required: true},
				{Name: "limit", Type: "number", Description: "Maximum results to return", Default: float64(0)},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				query, _ := params["query"].(string)
				limit, _ := params["limit"].(float64)
				return o.StoreSearch(ctx, query, int(limit)), nil
			},
		},
		{
			Name:        "store_add",
			Description: "Save content to the active memory store.",
			Parameters: []toolexec.ToolParameter{
				{Name: "content", Type: "string", Description: "Text to remember", Required: true},
				{Name: "type", Type: "string", Description: "Memory type tag", Default: "manual"},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				content, _ := params["content"].(string)
				memoryType, _ := params["type"].(string)
				return o.StoreAdd(ctx, content, memoryType), nil
			},
		},
		{
			Name:        "store_stats",
			Description: "Report how many memories the active store holds.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return o.StoreStats(ctx), nil
			},
		},
		{
			Name:        "judge_worth_saving",
			Description: "Judge whether content is worth saving as a long-term memory. Advisory only; does not write.",
			Parameters: []toolexec.ToolParameter{
				{Name: "content", Type: "string", Description: "Candidate memory content", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				content, _ := params["content"].(string)
				return o.JudgeWorthSaving(ctx, content), nil
			},
		},
	}

	for _, def := range defs {
		if err := executor.RegisterTool(def); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", def.Name, err)
		}
	}
	return nil
}
