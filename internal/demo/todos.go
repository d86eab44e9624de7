package demo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/signalstore/internal/effect"
	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/feature"
	"github.com/roach88/signalstore/internal/reactive"
	"github.com/roach88/signalstore/internal/selector"
)

// TodosKey is the AppState key of the todos feature.
const TodosKey = "todos"

// Todo is one item. TempID is set while a created todo awaits its server id.
type Todo struct {
	ID         string `json:"id,omitempty"`
	TempID     string `json:"temp_id,omitempty"`
	Title      string `json:"title"`
	IsDone     bool   `json:"is_done"`
	IsBusiness bool   `json:"is_business"`
	IsPrivate  bool   `json:"is_private"`
}

// Category filters todos by flag.
type Category struct {
	IsBusiness bool `json:"is_business"`
	IsPrivate  bool `json:"is_private"`
}

// TodoFilter narrows the visible todos.
type TodoFilter struct {
	Search   string   `json:"search"`
	Category Category `json:"category"`
}

// TodosState is the todos slice.
type TodosState struct {
	Todos    []Todo     `json:"todos"`
	Filter   TodoFilter `json:"filter"`
	Selected *Todo      `json:"selected,omitempty"`
}

var (
	getTodos    = selector.Func[TodosState, []Todo](func(s TodosState) []Todo { return s.Todos })
	getFilter   = selector.Func[TodosState, TodoFilter](func(s TodosState) TodoFilter { return s.Filter })
	getSelected = selector.Func[TodosState, *Todo](func(s TodosState) *Todo { return s.Selected })
)

// newFilteredSelectors builds the memoized selector chain for one store
// instance, so instances do not share memo state.
func newFilteredSelectors() (done, notDone *selector.Memoized[TodosState, []Todo]) {
	filtered := selector.Create2(getTodos, getFilter, filterTodos)
	done = selector.Create1[TodosState](filtered, func(ts []Todo) []Todo {
		return keep(ts, func(t Todo) bool { return t.IsDone })
	})
	notDone = selector.Create1[TodosState](filtered, func(ts []Todo) []Todo {
		return keep(ts, func(t Todo) bool { return !t.IsDone })
	})
	return done, notDone
}

func filterTodos(todos []Todo, f TodoFilter) []Todo {
	search := strings.ToUpper(f.Search)
	return keep(todos, func(t Todo) bool {
		return strings.Contains(strings.ToUpper(t.Title), search) &&
			(!f.Category.IsBusiness || t.IsBusiness) &&
			(!f.Category.IsPrivate || t.IsPrivate)
	})
}

func keep(todos []Todo, pred func(Todo) bool) []Todo {
	out := []Todo{}
	for _, t := range todos {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// TodosStore is the todos feature: local selection and filter updates plus
// API-backed load, create, update and delete with optimistic updates.
type TodosStore struct {
	*feature.FeatureStore[TodosState]

	TodosDone    *reactive.Computed[[]Todo]
	TodosNotDone *reactive.Computed[[]Todo]
	Filter       *reactive.Computed[TodoFilter]
	Selected     *reactive.Computed[*Todo]

	api    TodosAPI
	newID  func() string
	logger *slog.Logger

	load   *effect.Effect[struct{}]
	create *effect.Effect[Todo]
}

// NewTodosStore registers the todos feature and starts loading from api.
func NewTodosStore(st *engine.Store, api TodosAPI, opts ...effect.Option) (*TodosStore, error) {
	fs, err := feature.New(st, TodosKey, TodosState{Todos: []Todo{}})
	if err != nil {
		return nil, err
	}

	done, notDone := newFilteredSelectors()
	s := &TodosStore{
		FeatureStore: fs,
		TodosDone:    feature.SelectWith(fs, done),
		TodosNotDone: feature.SelectWith(fs, notDone),
		Filter:       feature.SelectWith(fs, selector.Selector[TodosState, TodoFilter](getFilter)),
		Selected:     feature.SelectWith(fs, selector.Selector[TodosState, *Todo](getSelected)),
		api:          api,
		newID:        st.NewID,
		logger:       st.Logger(),
	}

	s.load = feature.Effect(fs, s.loadTodos, append(opts, effect.WithName("todos.load"))...)
	s.create = feature.Effect(fs, s.createTodo, append(opts, effect.WithName("todos.create"))...)

	s.Load()
	return s, nil
}

// Load fetches every todo from the API.
func (s *TodosStore) Load() {
	s.load.Run(struct{}{})
}

func (s *TodosStore) loadTodos(ctx context.Context, _ struct{}) error {
	todos, err := s.api.GetTodos(ctx)
	return effect.TapResponse(todos, err,
		func(todos []Todo) {
			_, _ = s.UpdateFn(func(st TodosState) TodosState {
				st.Todos = todos
				return st
			}, "loadSuccess")
		},
		nil,
	)
}

// Create optimistically appends t, then replaces it with the server copy
// or reverts when the API call fails.
func (s *TodosStore) Create(t Todo) {
	s.create.Run(t)
}

func (s *TodosStore) createTodo(ctx context.Context, t Todo) error {
	_, err := feature.Optimistic(ctx, s, "create",
		func(st TodosState) TodosState {
			st.Todos = append(append([]Todo{}, st.Todos...), t)
			return st
		},
		func(ctx context.Context) (Todo, error) {
			return s.api.CreateTodo(ctx, t)
		},
		func(st TodosState, created Todo) TodosState {
			st.Todos = mapTodos(st.Todos, func(item Todo) Todo {
				if t.TempID != "" && item.TempID == t.TempID {
					return created
				}
				return item
			})
			st.Selected = &created
			return st
		},
	)
	return err
}

// Wait blocks until in-flight load and create calls finish.
func (s *TodosStore) Wait() error {
	loadErr := s.load.Wait()
	createErr := s.create.Wait()
	if loadErr != nil {
		return loadErr
	}
	return createErr
}

// UpdateTodo optimistically merges t into the list and reverts on failure.
func (s *TodosStore) UpdateTodo(ctx context.Context, t Todo) error {
	_, err := feature.Optimistic(ctx, s, "update",
		func(st TodosState) TodosState {
			st.Todos = replaceTodo(st.Todos, t)
			return st
		},
		func(ctx context.Context) (Todo, error) {
			return s.api.UpdateTodo(ctx, t)
		},
		func(st TodosState, updated Todo) TodosState {
			st.Todos = replaceTodo(st.Todos, updated)
			return st
		},
	)
	if err != nil {
		s.logger.Error("update todo failed", "id", t.ID, "error", err)
	}
	return err
}

// Delete optimistically removes t and clears the selection, reverting on failure.
func (s *TodosStore) Delete(ctx context.Context, t Todo) error {
	_, err := feature.Optimistic(ctx, s, "delete",
		func(st TodosState) TodosState {
			st.Selected = nil
			st.Todos = keep(st.Todos, func(item Todo) bool { return item.ID != t.ID })
			return st
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteTodo(ctx, t)
		},
		func(st TodosState, _ struct{}) TodosState { return st },
	)
	if err != nil {
		s.logger.Error("delete todo failed", "id", t.ID, "error", err)
	}
	return err
}

// SelectTodo marks t as selected.
func (s *TodosStore) SelectTodo(t Todo) error {
	_, err := s.UpdateFn(func(st TodosState) TodosState {
		st.Selected = &t
		return st
	}, "selectTodo")
	return err
}

// InitNewTodo selects a fresh todo carrying a temp id.
func (s *TodosStore) InitNewTodo() (Todo, error) {
	t := Todo{TempID: s.newID()}
	return t, s.SelectTodo(t)
}

// ClearSelectedTodo clears the selection.
func (s *TodosStore) ClearSelectedTodo() error {
	_, err := s.UpdateFn(func(st TodosState) TodosState {
		st.Selected = nil
		return st
	}, "clearSelectedTodo")
	return err
}

// UpdateFilter replaces the filter.
func (s *TodosStore) UpdateFilter(f TodoFilter) error {
	_, err := s.UpdateFn(func(st TodosState) TodosState {
		st.Filter = f
		return st
	}, "updateFilter")
	return err
}

func mapTodos(todos []Todo, fn func(Todo) Todo) []Todo {
	out := make([]Todo, len(todos))
	for i, t := range todos {
		out[i] = fn(t)
	}
	return out
}

func replaceTodo(todos []Todo, updated Todo) []Todo {
	return mapTodos(todos, func(t Todo) Todo {
		if t.ID == updated.ID {
			return updated
		}
		return t
	})
}
