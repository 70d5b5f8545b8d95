package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func buildTestSchema() *Schema {
	s := NewSchema("")
	s.SetQueryType("Query").SetMutationType("Mutation")
	s.AddType(NewType("Query", TypeKindObject, "").
		AddField(NewField("books", "", NonNullType(ListType(NonNullType(NamedType("Book"))))).SetSource(SourceProxied)).
		AddField(NewField("book", "", NamedType("Book")).
			AddArgument(NewInputValue("id", "", NonNullType(NamedType("ID"))))))
	s.AddType(NewType("Mutation", TypeKindObject, "").
		AddField(NewField("like", "", NonNullType(NamedType("Boolean"))).
			AddArgument(NewInputValue("times", "", NamedType("Int")).SetDefault(1))))
	s.AddType(NewType("Book", TypeKindObject, "A printed work").
		AddField(NewField("id", "", NonNullType(NamedType("ID")))).
		AddField(NewField("label", "title and year", NonNullType(NamedType("String"))).SetSource(SourceDerived)).
		AddField(NewField("isbn", "", NamedType("String")).Deprecate("use id")))
	s.AddType(NewType("Shelf", TypeKindEnum, "").
		AddEnumValue(NewEnumValue("TOP", "")).
		AddEnumValue(NewEnumValue("BOTTOM", "")))
	return s
}

func TestRender(t *testing.T) {
	want := `schema {
  query: Query
  mutation: Mutation
}

type Query {
  books: [Book!]!
  book(id: ID!): Book
}

type Mutation {
  like(times: Int = 1): Boolean!
}

"""
A printed work
"""
type Book {
  id: ID!
  """
  title and year
  """
  label: String!
  isbn: String @deprecated(reason: "use id")
}

enum Shelf {
  TOP
  BOTTOM
}
`
	if diff := cmp.Diff(want, Render(buildTestSchema())); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	s := buildTestSchema()

	f := s.Lookup("Query", "books")
	require.NotNil(t, f)
	require.True(t, f.Async)
	require.Equal(t, SourceProxied, f.Source)
	require.Equal(t, "[Book!]!", f.Type.String())

	label := s.Lookup("Book", "label")
	require.NotNil(t, label)
	require.False(t, label.Async)
	require.Equal(t, SourceDerived, label.Source)

	require.Nil(t, s.Lookup("Book", "missing"))
	require.Nil(t, s.Lookup("Missing", "id"))
	require.NotNil(t, s.Lookup("Query", "book").Argument("id"))
	require.Nil(t, s.Lookup("Query", "book").Argument("name"))
}

func TestTypeRefHelpers(t *testing.T) {
	ref := NonNullType(ListType(NonNullType(NamedType("Movie"))))
	require.True(t, IsNonNull(ref))
	require.True(t, IsList(ref))
	require.Equal(t, "Movie", GetNamedType(ref))
	require.Equal(t, "[Movie!]", Unwrap(ref).String())
	require.False(t, IsNonNull(nil))
}
