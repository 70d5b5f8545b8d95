package catalog

// Movie is a record of the remote movie catalog, passed through unchanged.
// Only the structural constraints below are checked at the boundary.
type Movie struct {
	ID                      int      `json:"id" validate:"gt=0"`
	URL                     string   `json:"url" validate:"required,url"`
	ImdbCode                string   `json:"imdb_code"`
	Title                   string   `json:"title" validate:"required"`
	TitleEnglish            string   `json:"title_english"`
	TitleLong               string   `json:"title_long"`
	Slug                    string   `json:"slug"`
	Year                    int      `json:"year" validate:"gte=0"`
	Rating                  float64  `json:"rating" validate:"gte=0,lte=10"`
	Runtime                 float64  `json:"runtime" validate:"gte=0"`
	Genres                  []string `json:"genres" validate:"required"`
	Summary                 *string  `json:"summary"`
	DescriptionFull         string   `json:"description_full"`
	Synopsis                *string  `json:"synopsis"`
	YtTrailerCode           string   `json:"yt_trailer_code"`
	Language                string   `json:"language"`
	BackgroundImage         string   `json:"background_image"`
	BackgroundImageOriginal string   `json:"background_image_original"`
	SmallCoverImage         string   `json:"small_cover_image"`
	MediumCoverImage        string   `json:"medium_cover_image"`
	LargeCoverImage         string   `json:"large_cover_image"`
}

// Property exposes the record by its wire field names, which are also the
// GraphQL field names. Absent optional texts read as nil.
func (m Movie) Property(name string) (any, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "url":
		return m.URL, true
	case "imdb_code":
		return m.ImdbCode, true
	case "title":
		return m.Title, true
	case "title_english":
		return m.TitleEnglish, true
	case "title_long":
		return m.TitleLong, true
	case "slug":
		return m.Slug, true
	case "year":
		return m.Year, true
	case "rating":
		return m.Rating, true
	case "runtime":
		return m.Runtime, true
	case "genres":
		return m.Genres, true
	case "summary":
		return optional(m.Summary), true
	case "description_full":
		return m.DescriptionFull, true
	case "synopsis":
		return optional(m.Synopsis), true
	case "yt_trailer_code":
		return m.YtTrailerCode, true
	case "language":
		return m.Language, true
	case "background_image":
		return m.BackgroundImage, true
	case "background_image_original":
		return m.BackgroundImageOriginal, true
	case "small_cover_image":
		return m.SmallCoverImage, true
	case "medium_cover_image":
		return m.MediumCoverImage, true
	case "large_cover_image":
		return m.LargeCoverImage, true
	}
	return nil, false
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
