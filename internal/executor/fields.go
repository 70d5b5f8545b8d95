package executor

import (
	language "github.com/hanpama/feedgraph/internal/language"
	schema "github.com/hanpama/feedgraph/internal/schema"
)

// fieldGroup is every field node answering to one response key. All nodes
// of a group resolve once and merge their sub-selections.
type fieldGroup struct {
	Key    string
	Fields []*language.Field
}

// fragments resolves the named fragments of one document for a single walk.
// Validation and field collection both go through it.
type fragments struct {
	document *language.QueryDocument
	entered  map[string]bool
}

func newFragments(doc *language.QueryDocument) *fragments {
	return &fragments{document: doc, entered: map[string]bool{}}
}

func (f *fragments) lookup(name string) *language.FragmentDefinition {
	return f.document.Fragments.ForName(name)
}

// enter marks name as being expanded. It reports false when name is already
// entered.
func (f *fragments) enter(name string) bool {
	if f.entered[name] {
		return false
	}
	f.entered[name] = true
	return true
}

func (f *fragments) leave(name string) { delete(f.entered, name) }

// appliesTo reports whether a fragment with typeCondition selects on t.
func appliesTo(typeCondition string, t *schema.Type) bool {
	return typeCondition == "" || typeCondition == t.Name
}

// collectFields flattens set for objectType into response-key groups in
// first-seen order. Nodes dropped by @skip/@include and fragments on other
// types contribute nothing. Each named fragment expands at most once.
func collectFields(state *executionState, objectType *schema.Type, set language.SelectionSet) []fieldGroup {
	c := &fieldCollector{
		vars:       state.variableValues,
		objectType: objectType,
		fragments:  newFragments(state.document),
		index:      map[string]int{},
	}
	c.collect(set)
	return c.groups
}

type fieldCollector struct {
	vars       map[string]any
	objectType *schema.Type
	fragments  *fragments
	groups     []fieldGroup
	index      map[string]int
}

func (c *fieldCollector) collect(set language.SelectionSet) {
	for _, selection := range set {
		switch sel := selection.(type) {
		case *language.Field:
			if c.included(sel.Directives) {
				c.add(sel)
			}
		case *language.InlineFragment:
			if c.included(sel.Directives) && appliesTo(sel.TypeCondition, c.objectType) {
				c.collect(sel.SelectionSet)
			}
		case *language.FragmentSpread:
			if !c.included(sel.Directives) || !c.fragments.enter(sel.Name) {
				continue
			}
			def := c.fragments.lookup(sel.Name)
			if def != nil && appliesTo(def.TypeCondition, c.objectType) && c.included(def.Directives) {
				c.collect(def.SelectionSet)
			}
		}
	}
}

func (c *fieldCollector) add(f *language.Field) {
	key := f.Alias
	if key == "" {
		key = f.Name
	}
	if i, ok := c.index[key]; ok {
		c.groups[i].Fields = append(c.groups[i].Fields, f)
		return
	}
	c.index[key] = len(c.groups)
	c.groups = append(c.groups, fieldGroup{Key: key, Fields: []*language.Field{f}})
}

// included applies @skip and @include. A condition that is not a boolean
// leaves the node in.
func (c *fieldCollector) included(dirs language.DirectiveList) bool {
	if skip, ok := c.condition(dirs.ForName("skip")); ok && skip {
		return false
	}
	if include, ok := c.condition(dirs.ForName("include")); ok && !include {
		return false
	}
	return true
}

func (c *fieldCollector) condition(d *language.Directive) (value, ok bool) {
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, ok = valueFromASTWithVars(arg.Value, c.vars).(bool)
	return value, ok
}
