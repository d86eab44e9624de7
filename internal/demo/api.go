package demo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// ErrAPIFailure is returned by MemoryTodosAPI calls marked to fail.
var ErrAPIFailure = errors.New("todos api: request failed")

// TodosAPI is the backend of the todos feature.
type TodosAPI interface {
	GetTodos(ctx context.Context) ([]Todo, error)
	CreateTodo(ctx context.Context, t Todo) (Todo, error)
	UpdateTodo(ctx context.Context, t Todo) (Todo, error)
	DeleteTodo(ctx context.Context, t Todo) error
}

// MemoryTodosAPI is an in-process TodosAPI. Server ids are assigned from a
// counter starting at FirstID.
type MemoryTodosAPI struct {
	mu     sync.Mutex
	todos  map[string]Todo
	nextID int
	fail   map[string]bool
}

// FirstID is the first id assigned by MemoryTodosAPI.
const FirstID = 42

// NewMemoryTodosAPI creates an API seeded with todos.
func NewMemoryTodosAPI(seed ...Todo) *MemoryTodosAPI {
	api := &MemoryTodosAPI{
		todos:  map[string]Todo{},
		nextID: FirstID,
		fail:   map[string]bool{},
	}
	for _, t := range seed {
		api.todos[t.ID] = t
	}
	return api
}

// FailNext makes the next call of op ("get", "create", "update", "delete") fail.
func (m *MemoryTodosAPI) FailNext(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = true
}

func (m *MemoryTodosAPI) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.fail[op] {
		delete(m.fail, op)
		return fmt.Errorf("%s: %w", op, ErrAPIFailure)
	}
	return nil
}

// GetTodos returns every todo ordered by id.
func (m *MemoryTodosAPI) GetTodos(ctx context.Context) ([]Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "get"); err != nil {
		return nil, err
	}
	out := make([]Todo, 0, len(m.todos))
	for _, t := range m.todos {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateTodo stores t under a new server id and clears its temp id.
func (m *MemoryTodosAPI) CreateTodo(ctx context.Context, t Todo) (Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "create"); err != nil {
		return Todo{}, err
	}
	t.ID = strconv.Itoa(m.nextID)
	m.nextID++
	t.TempID = ""
	m.todos[t.ID] = t
	return t, nil
}

// UpdateTodo replaces the stored todo with t.
func (m *MemoryTodosAPI) UpdateTodo(ctx context.Context, t Todo) (Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "update"); err != nil {
		return Todo{}, err
	}
	if _, ok := m.todos[t.ID]; !ok {
		return Todo{}, fmt.Errorf("update %s: not found", t.ID)
	}
	m.todos[t.ID] = t
	return t, nil
}

// DeleteTodo removes t.
func (m *MemoryTodosAPI) DeleteTodo(ctx context.Context, t Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "delete"); err != nil {
		return err
	}
	delete(m.todos, t.ID)
	return nil
}
