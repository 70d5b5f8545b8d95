package feedgraph

import (
	schema "github.com/hanpama/feedgraph/internal/schema"
)

func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }

func nonNullList(name string) *schema.TypeRef {
	return schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType(name))))
}

// NewSchema returns the static type table served by feedgraph.
//
// Fields read straight off a record are stored, fields computed from local
// data are derived, and fields answered by the remote movie catalog are
// proxied. Proxied fields resolve asynchronously.
func NewSchema() *schema.Schema {
	s := schema.NewSchema("")
	s.SetQueryType("Query").SetMutationType("Mutation")

	s.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("allMessages", "", nonNullList("Message")).SetSource(schema.SourceDerived)).
		AddField(schema.NewField("message", "", schema.NamedType("Message")).SetSource(schema.SourceDerived).
			AddArgument(schema.NewInputValue("id", "", nonNull("ID")))).
		AddField(schema.NewField("allUsers", "", nonNullList("User")).SetSource(schema.SourceDerived)).
		AddField(schema.NewField("allMovies", "", nonNullList("Movie")).SetSource(schema.SourceProxied)).
		AddField(schema.NewField("movie", "", schema.NamedType("Movie")).SetSource(schema.SourceProxied).
			AddArgument(schema.NewInputValue("id", "", nonNull("String")))))

	s.AddType(schema.NewType("Mutation", schema.TypeKindObject, "").
		AddField(schema.NewField("postMessage", "", nonNull("Message")).SetSource(schema.SourceDerived).
			AddArgument(schema.NewInputValue("text", "", nonNull("String"))).
			AddArgument(schema.NewInputValue("userId", "", nonNull("ID")))).
		AddField(schema.NewField("deleteMessage",
			"deleteMessage deletes a message by id, returns true if successful and false if not",
			nonNull("Boolean")).SetSource(schema.SourceDerived).
			AddArgument(schema.NewInputValue("id", "", nonNull("ID")))))

	s.AddType(schema.NewType("User", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", nonNull("ID"))).
		AddField(schema.NewField("firstName", "", nonNull("String"))).
		AddField(schema.NewField("lastName", "", nonNull("String"))).
		AddField(schema.NewField("fullName", "fullName is firstName and lastName joined by a space", nonNull("String")).
			SetSource(schema.SourceDerived)))

	s.AddType(schema.NewType("Message", schema.TypeKindObject, "Message is a short text posted by a user").
		AddField(schema.NewField("id", "", nonNull("ID"))).
		AddField(schema.NewField("text", "", nonNull("String"))).
		AddField(schema.NewField("userId", "", nonNull("ID"))).
		AddField(schema.NewField("author", "author is null when userId names no known user", schema.NamedType("User")).
			SetSource(schema.SourceDerived)))

	movie := schema.NewType("Movie", schema.TypeKindObject, "Movie is a record of the remote YTS catalog")
	for _, f := range []struct {
		name string
		typ  *schema.TypeRef
	}{
		{"id", nonNull("Int")},
		{"url", nonNull("String")},
		{"imdb_code", nonNull("String")},
		{"title", nonNull("String")},
		{"title_english", nonNull("String")},
		{"title_long", nonNull("String")},
		{"slug", nonNull("String")},
		{"year", nonNull("Int")},
		{"rating", nonNull("Float")},
		{"runtime", nonNull("Float")},
		{"genres", schema.NonNullType(schema.ListType(schema.NamedType("String")))},
		{"summary", schema.NamedType("String")},
		{"description_full", nonNull("String")},
		{"synopsis", schema.NamedType("String")},
		{"yt_trailer_code", nonNull("String")},
		{"language", nonNull("String")},
		{"background_image", nonNull("String")},
		{"background_image_original", nonNull("String")},
		{"small_cover_image", nonNull("String")},
		{"medium_cover_image", nonNull("String")},
		{"large_cover_image", nonNull("String")},
	} {
		movie.AddField(schema.NewField(f.name, "", f.typ))
	}
	s.AddType(movie)

	return s
}
