// Package feedgraph binds the feedgraph schema to its data: the in-memory
// message store and the remote movie catalog.
package feedgraph

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	catalog "github.com/hanpama/feedgraph/internal/catalog"
	executor "github.com/hanpama/feedgraph/internal/executor"
	store "github.com/hanpama/feedgraph/internal/store"
)

// Store is the local data the resolvers read and write.
type Store interface {
	ListMessages() []store.Message
	GetMessage(id string) (store.Message, bool)
	ListUsers() []store.User
	GetUser(id string) (store.User, bool)
	CreateMessage(ctx context.Context, text, userID string) store.Message
	DeleteMessage(ctx context.Context, id string) bool
}

// Catalog is the remote movie source.
type Catalog interface {
	ListMovies(ctx context.Context) ([]catalog.Movie, error)
	GetMovie(ctx context.Context, id string) (*catalog.Movie, error)
}

// Object is a record whose stored fields can be read by GraphQL field name.
type Object interface {
	Property(name string) (any, bool)
}

// Resolver computes one field. Returning (nil, nil) yields a GraphQL null.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

type fieldKey struct {
	Type  string
	Field string
}

// Runtime implements executor.Runtime.
//   - Registry first: a field with a registered Resolver always goes through
//     it, sync or async.
//   - Stored fields fall back to Object.Property on the parent value.
//   - A field that is neither registered nor readable is a wiring bug and
//     panics.
//   - BatchResolveAsync fans out every task of a depth concurrently and
//     writes results into their task slots.
type Runtime struct {
	resolvers map[fieldKey]Resolver
}

var _ executor.Runtime = (*Runtime)(nil)

// NewRuntime wires the resolvers for the feedgraph schema.
func NewRuntime(st Store, cat Catalog) *Runtime {
	r := &Runtime{resolvers: map[fieldKey]Resolver{}}

	r.register("Query", "allMessages", func(ctx context.Context, _ any, _ map[string]any) (any, error) {
		return st.ListMessages(), nil
	})
	r.register("Query", "message", func(ctx context.Context, _ any, args map[string]any) (any, error) {
		if m, ok := st.GetMessage(stringArg(args, "id")); ok {
			return m, nil
		}
		return nil, nil
	})
	r.register("Query", "allUsers", func(ctx context.Context, _ any, _ map[string]any) (any, error) {
		return st.ListUsers(), nil
	})
	r.register("Query", "allMovies", func(ctx context.Context, _ any, _ map[string]any) (any, error) {
		return cat.ListMovies(ctx)
	})
	r.register("Query", "movie", func(ctx context.Context, _ any, args map[string]any) (any, error) {
		m, err := cat.GetMovie(ctx, stringArg(args, "id"))
		if err != nil || m == nil {
			return nil, err
		}
		return m, nil
	})

	r.register("Mutation", "postMessage", func(ctx context.Context, _ any, args map[string]any) (any, error) {
		return st.CreateMessage(ctx, stringArg(args, "text"), stringArg(args, "userId")), nil
	})
	r.register("Mutation", "deleteMessage", func(ctx context.Context, _ any, args map[string]any) (any, error) {
		return st.DeleteMessage(ctx, stringArg(args, "id")), nil
	})

	r.register("User", "fullName", func(ctx context.Context, source any, _ map[string]any) (any, error) {
		return mustUser(source).FullName(), nil
	})
	r.register("Message", "author", func(ctx context.Context, source any, _ map[string]any) (any, error) {
		if u, ok := st.GetUser(mustMessage(source).UserID); ok {
			return u, nil
		}
		return nil, nil
	})

	return r
}

func (r *Runtime) register(objectType, field string, fn Resolver) {
	r.resolvers[fieldKey{Type: objectType, Field: field}] = fn
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if fn, ok := r.resolvers[fieldKey{Type: objectType, Field: field}]; ok {
		return fn(ctx, source, args)
	}
	obj, ok := source.(Object)
	if !ok {
		panic(fmt.Sprintf("ResolveSync: no resolver for %s.%s and source %T has no properties", objectType, field, source))
	}
	v, ok := obj.Property(field)
	if !ok {
		panic(fmt.Sprintf("ResolveSync: %T has no property %q for %s.%s", source, field, objectType, field))
	}
	return v, nil
}

// BatchResolveAsync runs every task of one depth in parallel. A failure only
// affects its own slot.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	fns := make([]Resolver, len(tasks))
	for i, t := range tasks {
		fn, ok := r.resolvers[fieldKey{Type: t.ObjectType, Field: t.Field}]
		if !ok {
			panic(fmt.Sprintf("BatchResolveAsync: no resolver registered for %s.%s", t.ObjectType, t.Field))
		}
		fns[i] = fn
	}

	run := func(i int) {
		v, err := fns[i](ctx, tasks[i].Source, tasks[i].Args)
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	if len(tasks) == 1 {
		run(0)
		return results
	}
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i := range tasks {
		go func(i int) {
			defer wg.Done()
			run(i)
		}(i)
	}
	wg.Wait()
	return results
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if s, ok := value.(*string); ok {
		if s == nil {
			return nil, nil
		}
		value = *s
	}
	switch typeName {
	case "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		}
	case "String":
		if v, ok := value.(string); ok {
			return v, nil
		}
	case "Int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), nil
			}
		}
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("unknown leaf type %s", typeName)
	}
	return nil, fmt.Errorf("cannot serialize %v (%T) as %s", value, value, typeName)
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func mustUser(source any) store.User {
	switch u := source.(type) {
	case store.User:
		return u
	case *store.User:
		return *u
	}
	panic(fmt.Sprintf("expected store.User source, got %T", source))
}

func mustMessage(source any) store.Message {
	switch m := source.(type) {
	case store.Message:
		return m
	case *store.Message:
		return *m
	}
	panic(fmt.Sprintf("expected store.Message source, got %T", source))
}
