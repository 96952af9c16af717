// Package datastore dispatches keyed document commands (save, load,
// search, delete, count) against named collections.
package datastore

import (
	"context"
	"encoding/json"
	"fmt"
)

type Action string

const (
	ActionSave   Action = "save"
	ActionLoad   Action = "load"
	ActionSearch Action = "search"
	ActionDelete Action = "delete"
	ActionCount  Action = "count"
)

const DefaultSearchLimit = 100

// Command is one request against a collection. ID is empty for a create.
type Command struct {
	Action    Action          `json:"action"`
	TableName string          `json:"tableName"`
	ID        string          `json:"id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Limit     int             `json:"limit,omitempty"`
}

// Item is one document returned by a search
type Item struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Result carries whichever fields the action produces. Load of a missing
// document yields a nil Data.
type Result struct {
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Items []Item          `json:"items,omitempty"`
	Total int             `json:"total"`
}

// Executor runs commands. The dispatcher is the production implementation.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (*Result, error)
}

// Backend is a durable document table. Save with an empty id mints one.
// Search makes no ordering guarantee.
type Backend interface {
	Save(ctx context.Context, table, id string, data []byte) (string, error)
	Load(ctx context.Context, table, id string) ([]byte, bool, error)
	Search(ctx context.Context, table string, limit int) ([]Item, error)
	Delete(ctx context.Context, table, id string) error
	Count(ctx context.Context, table string) (int, error)
}

type Dispatcher struct {
	backend Backend
}

func NewDispatcher(backend Backend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.TableName == "" {
		return nil, fmt.Errorf("datastore %s: tableName is required", cmd.Action)
	}

	switch cmd.Action {
	case ActionSave:
		if len(cmd.Data) == 0 || !json.Valid(cmd.Data) {
			return nil, fmt.Errorf("datastore save: data must be a JSON document")
		}
		id, err := d.backend.Save(ctx, cmd.TableName, cmd.ID, cmd.Data)
		if err != nil {
			return nil, fmt.Errorf("datastore save: %w", err)
		}
		return &Result{ID: id}, nil

	case ActionLoad:
		if cmd.ID == "" {
			return nil, fmt.Errorf("datastore load: id is required")
		}
		data, found, err := d.backend.Load(ctx, cmd.TableName, cmd.ID)
		if err != nil {
			return nil, fmt.Errorf("datastore load: %w", err)
		}
		if !found {
			return &Result{ID: cmd.ID}, nil
		}
		return &Result{ID: cmd.ID, Data: data}, nil

	case ActionSearch:
		limit := cmd.Limit
		if limit <= 0 {
			limit = DefaultSearchLimit
		}
		items, err := d.backend.Search(ctx, cmd.TableName, limit)
		if err != nil {
			return nil, fmt.Errorf("datastore search: %w", err)
		}
		return &Result{Items: items, Total: len(items)}, nil

	case ActionDelete:
		if cmd.ID == "" {
			return nil, fmt.Errorf("datastore delete: id is required")
		}
		if err := d.backend.Delete(ctx, cmd.TableName, cmd.ID); err != nil {
			return nil, fmt.Errorf("datastore delete: %w", err)
		}
		return &Result{ID: cmd.ID}, nil

	case ActionCount:
		total, err := d.backend.Count(ctx, cmd.TableName)
		if err != nil {
			return nil, fmt.Errorf("datastore count: %w", err)
		}
		return &Result{Total: total}, nil
	}

	return nil, fmt.Errorf("datastore: unknown action %q", cmd.Action)
}
