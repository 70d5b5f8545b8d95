package executor

import (
	"context"
	"strings"
	"sync"

	schema "github.com/hanpama/feedgraph/internal/schema"
)

// MockResolver resolves one field of one source value.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

const (
	CallKindSync  = "sync"
	CallKindAsync = "async"
)

func NewMockValueResolver(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

func NewMockErrorResolver(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// Call records one resolved item. Async items of the same BatchResolveAsync
// call share a BatchID starting at 1; sync calls have BatchID 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	BatchID    int
}

type mockKey struct{ objectType, field string }

// MockRuntime is a Runtime for tests. Fields without a resolver resolve to
// null. Every resolved item is appended to the call log.
type MockRuntime struct {
	mu         sync.Mutex
	resolvers  map[mockKey]MockResolver
	calls      []Call
	batches    int
	serializer func(val any, t schema.TypeRef) (any, error)
}

// NewMockRuntime takes resolvers keyed "ObjectType.Field".
func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[mockKey]MockResolver, len(resolvers))}
	for k, r := range resolvers {
		typ, field, _ := strings.Cut(k, ".")
		m.resolvers[mockKey{typ, field}] = r
	}
	return m
}

func (m *MockRuntime) SetResolver(objectType, field string, resolver MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[mockKey{objectType, field}] = resolver
}

// SetSerializer installs a leaf serializer on r when it is a *MockRuntime.
// Without one, leaf values pass through unchanged.
func SetSerializer(r Runtime, f func(val any, t schema.TypeRef) (any, error)) {
	if m, ok := r.(*MockRuntime); ok {
		m.mu.Lock()
		m.serializer = f
		m.mu.Unlock()
	}
}

func (m *MockRuntime) resolve(ctx context.Context, c Call) AsyncResolveResult {
	m.mu.Lock()
	r := m.resolvers[mockKey{c.ObjectType, c.Field}]
	m.mu.Unlock()

	var res AsyncResolveResult
	if r != nil {
		res.Value, res.Error = r(ctx, c.Source, c.Args)
	}

	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
	return res
}

func (m *MockRuntime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	res := m.resolve(ctx, Call{Kind: CallKindSync, ObjectType: objectType, Field: field, Source: source, Args: args})
	if res.Error != nil {
		return nil, res.Error
	}
	return res.Value, nil
}

// BatchResolveAsync resolves tasks grouped by field, groups in order of first
// appearance, so the call log shows one field's items together.
func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	if len(tasks) == 0 {
		return nil
	}
	m.mu.Lock()
	m.batches++
	batchID := m.batches
	m.mu.Unlock()

	var order []mockKey
	byField := map[mockKey][]int{}
	for i, t := range tasks {
		k := mockKey{t.ObjectType, t.Field}
		if _, seen := byField[k]; !seen {
			order = append(order, k)
		}
		byField[k] = append(byField[k], i)
	}

	results := make([]AsyncResolveResult, len(tasks))
	for _, k := range order {
		for _, i := range byField[k] {
			results[i] = m.resolve(ctx, Call{
				Kind:       CallKindAsync,
				ObjectType: k.objectType,
				Field:      k.field,
				Source:     tasks[i].Source,
				Args:       tasks[i].Args,
				BatchID:    batchID,
			})
		}
	}
	return results
}

func (m *MockRuntime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	m.mu.Lock()
	f := m.serializer
	m.mu.Unlock()
	if f == nil {
		return value, nil
	}
	return f(value, *schema.NamedType(scalarOrEnumTypeName))
}

// GetCalls returns a copy of the call log.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
