package tmdb

// ErrorResponse is a TMDB API error payload.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// MovieResult is one movie in a search response.
type MovieResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Popularity  float64 `json:"popularity"`
	VoteCount   int     `json:"vote_count"`
}

// SearchMoviesResponse is the /search/movie payload.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// TVResult is one series in a search response.
type TVResult struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteCount    int     `json:"vote_count"`
}

// SearchTVResponse is the /search/tv payload.
type SearchTVResponse struct {
	Page         int        `json:"page"`
	Results      []TVResult `json:"results"`
	TotalResults int        `json:"total_results"`
}

// FindResponse is the /find/{external_id} payload.
type FindResponse struct {
	MovieResults []MovieResult `json:"movie_results"`
	TVResults    []TVResult    `json:"tv_results"`
}

// SeasonSummary is one season entry in series details.
type SeasonSummary struct {
	SeasonNumber int `json:"season_number"`
	EpisodeCount int `json:"episode_count"`
}

// SeriesDetails is the /tv/{id} payload.
type SeriesDetails struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Seasons []SeasonSummary `json:"seasons"`
}

// EpisodeDetails is one episode in a season payload.
type EpisodeDetails struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	AirDate       string `json:"air_date"`
}

// SeasonDetails is the /tv/{id}/season/{n} payload.
type SeasonDetails struct {
	SeasonNumber int              `json:"season_number"`
	Episodes     []EpisodeDetails `json:"episodes"`
}

// MovieDetails is the /movie/{id} payload.
type MovieDetails struct {
	ID                  int    `json:"id"`
	Title               string `json:"title"`
	ReleaseDate         string `json:"release_date"`
	BelongsToCollection *struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"belongs_to_collection"`
}

// CollectionDetails is the /collection/{id} payload.
type CollectionDetails struct {
	ID    int           `json:"id"`
	Name  string        `json:"name"`
	Parts []MovieResult `json:"parts"`
}
