// Package demo registers the example stores served by the hookstore command
// and mounts components that render them.
package demo

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/vango-dev/hookstore/pkg/binding"
	"github.com/vango-dev/hookstore/pkg/component"
	"github.com/vango-dev/hookstore/pkg/hookstore"
)

// Store names.
const (
	ClickCounter             = "clickCounter"
	TodoList                 = "todoList"
	SubscriptionClickCounter = "clickCounter2"
)

// Todo is one item of the todo list.
type Todo struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// TodoState is the state of the todo list store.
type TodoState struct {
	IDCount int    `json:"idCount"`
	Todos   []Todo `json:"todos"`
}

// TodoAction is dispatched to the todo list. "create" appends Text, "delete"
// removes the todo with ID.
type TodoAction struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	ID   int    `json:"id,omitempty"`
}

// ReduceTodos is the todo list reducer. It never modifies state in place.
func ReduceTodos(state TodoState, action TodoAction) TodoState {
	switch action.Type {
	case "create":
		id := state.IDCount + 1
		todos := append(slices.Clone(state.Todos), Todo{ID: id, Text: action.Text})
		return TodoState{IDCount: id, Todos: todos}
	case "delete":
		todos := slices.DeleteFunc(slices.Clone(state.Todos), func(t Todo) bool {
			return t.ID == action.ID
		})
		return TodoState{IDCount: state.IDCount, Todos: todos}
	default:
		return state
	}
}

// AlertLimit is the clickCounter2 value after which its subscriber cancels
// itself.
const AlertLimit = 3

// Stores holds the example stores.
type Stores struct {
	Clicks      *hookstore.StateStore[int]
	Todos       *hookstore.ReducerStore[TodoState, TodoAction]
	AlertClicks *hookstore.StateStore[int]

	alerts atomic.Int64
}

// Alerts returns how many times the clickCounter2 subscriber fired.
func (s *Stores) Alerts() int {
	return int(s.alerts.Load())
}

// Register creates the example stores in reg.
func Register(reg *hookstore.Registry, logger *slog.Logger) (*Stores, error) {
	clicks, err := hookstore.Create(reg, ClickCounter, 1)
	if err != nil {
		return nil, err
	}

	todos, err := hookstore.CreateWithReducer(reg, TodoList, TodoState{
		Todos: []Todo{{ID: 0, Text: "buy milk"}},
	}, ReduceTodos)
	if err != nil {
		return nil, err
	}

	alertClicks, err := hookstore.Create(reg, SubscriptionClickCounter, 0)
	if err != nil {
		return nil, err
	}

	s := &Stores{Clicks: clicks, Todos: todos, AlertClicks: alertClicks}

	var cancel func()
	cancel, err = alertClicks.SubscribeFunc(func(state int, _ any) {
		s.alerts.Add(1)
		logger.Info("you increased the counter", "store", SubscriptionClickCounter, "value", state)
		if state >= AlertLimit {
			logger.Info("alert limit reached, unsubscribing", "store", SubscriptionClickCounter)
			cancel()
		}
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Mount mounts one component per example store under root. Each logs what it
// renders; re-renders happen when q is flushed.
func Mount(root *component.Owner, reg *hookstore.Registry, logger *slog.Logger) error {
	mount := func(name string, render func(o *component.Owner) error) error {
		var o *component.Owner
		var renderErr error
		o = component.NewOwner(root, component.WithRender(func() {
			renderErr = render(o)
		}))
		o.Rerender()
		if renderErr != nil {
			o.Dispose()
			return renderErr
		}
		logger.Debug("component mounted", "component", name, "owner", o.ID())
		return nil
	}

	if err := mount("StatefulHello", func(o *component.Owner) error {
		count, _, err := binding.UseStore[int](o, reg, hookstore.ByName(ClickCounter), nil)
		if err != nil {
			return err
		}
		logger.Info("render", "component", "StatefulHello", "clicks", count)
		return nil
	}); err != nil {
		return err
	}

	if err := mount("TodoList", func(o *component.Owner) error {
		state, _, err := binding.UseReducer[TodoState, TodoAction](o, reg, hookstore.ByName(TodoList), nil)
		if err != nil {
			return err
		}
		logger.Info("render", "component", "TodoList", "todos", len(state.Todos))
		return nil
	}); err != nil {
		return err
	}

	return mount("SubscriptionExample", func(o *component.Owner) error {
		count, _, err := binding.UseStore[int](o, reg, hookstore.ByName(SubscriptionClickCounter), nil)
		if err != nil {
			return err
		}
		logger.Info("render", "component", "SubscriptionExample", "clicks", count)
		return nil
	})
}
