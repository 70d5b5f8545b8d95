package executor

import (
	"fmt"

	language "github.com/hanpama/feedgraph/internal/language"
	schema "github.com/hanpama/feedgraph/internal/schema"
)

// ValidationFailedCode is the extensions code attached to every error
// produced by request validation.
const ValidationFailedCode = "GRAPHQL_VALIDATION_FAILED"

// validator checks a request tree against the schema before execution. It
// covers the shape contract only: fields and arguments must exist, required
// arguments must be present, and selections must match leaf/object types.
type validator struct {
	schema    *schema.Schema
	fragments *fragments
	errors    []GraphQLError
}

// validateOperation returns one error per violation found in op.
func validateOperation(s *schema.Schema, doc *language.QueryDocument, rootType *schema.Type, op *language.OperationDefinition) []GraphQLError {
	v := &validator{schema: s, fragments: newFragments(doc)}
	v.selectionSet(rootType, op.SelectionSet)
	return v.errors
}

func (v *validator) selectionSet(objectType *schema.Type, set language.SelectionSet) {
	for _, selection := range set {
		switch sel := selection.(type) {
		case *language.Field:
			v.field(objectType, sel)
		case *language.InlineFragment:
			if sel.TypeCondition != "" && v.schema.Types[sel.TypeCondition] == nil {
				v.report(sel.Position, "Unknown type %q.", sel.TypeCondition)
				continue
			}
			v.selectionSet(objectType, sel.SelectionSet)
		case *language.FragmentSpread:
			def := v.fragments.lookup(sel.Name)
			if def == nil {
				v.report(sel.Position, "Unknown fragment %q.", sel.Name)
				continue
			}
			if def.TypeCondition != "" && v.schema.Types[def.TypeCondition] == nil {
				v.report(def.Position, "Unknown type %q.", def.TypeCondition)
				continue
			}
			// Entered fragments stay entered only along the current path, so
			// sibling spreads of one fragment are each checked.
			if !v.fragments.enter(sel.Name) {
				v.report(sel.Position, "Cannot spread fragment %q within itself.", sel.Name)
				continue
			}
			v.selectionSet(objectType, def.SelectionSet)
			v.fragments.leave(sel.Name)
		}
	}
}

func (v *validator) field(parent *schema.Type, f *language.Field) {
	if f.Name == "__typename" {
		if len(f.SelectionSet) > 0 {
			v.report(f.Position, "Field %q must not have a selection since type \"String!\" has no subfields.", f.Name)
		}
		return
	}

	def := parent.Field(f.Name)
	if def == nil {
		v.report(f.Position, "Cannot query field %q on type %q.", f.Name, parent.Name)
		return
	}

	for _, arg := range f.Arguments {
		if def.Argument(arg.Name) == nil {
			v.report(arg.Position, "Unknown argument %q on field \"%s.%s\".", arg.Name, parent.Name, f.Name)
		}
	}
	for _, argDef := range def.Arguments {
		if !schema.IsNonNull(argDef.Type) || argDef.DefaultValue != nil {
			continue
		}
		if f.Arguments.ForName(argDef.Name) == nil {
			v.report(f.Position, "Field %q argument %q of type %q is required, but it was not provided.", f.Name, argDef.Name, argDef.Type.String())
		}
	}

	named := v.schema.Types[schema.GetNamedType(def.Type)]
	if named == nil {
		v.report(f.Position, "Unknown type %q.", schema.GetNamedType(def.Type))
		return
	}
	switch named.Kind {
	case schema.TypeKindObject:
		if len(f.SelectionSet) == 0 {
			v.report(f.Position, "Field %q of type %q must have a selection of subfields.", f.Name, def.Type.String())
			return
		}
		v.selectionSet(named, f.SelectionSet)
	default:
		if len(f.SelectionSet) > 0 {
			v.report(f.Position, "Field %q must not have a selection since type %q has no subfields.", f.Name, def.Type.String())
		}
	}
}

func (v *validator) report(pos *language.Position, format string, args ...any) {
	ge := GraphQLError{
		Message:    fmt.Sprintf(format, args...),
		Extensions: map[string]any{"code": ValidationFailedCode},
	}
	if pos != nil {
		ge.Locations = []Location{{Line: pos.Line, Column: pos.Column}}
	}
	v.errors = append(v.errors, ge)
}
