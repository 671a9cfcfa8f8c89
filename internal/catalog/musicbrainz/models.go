package musicbrainz

// ArtistResult is one artist in a search response.
type ArtistResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SearchArtistResponse is the /artist?query= payload.
type SearchArtistResponse struct {
	Count   int            `json:"count"`
	Artists []ArtistResult `json:"artists"`
}

// ReleaseGroup is one release group in a browse response.
type ReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary-type"`
	SecondaryTypes   []string `json:"secondary-types"`
	FirstReleaseDate string   `json:"first-release-date"`
}

// BrowseReleaseGroupsResponse is the /release-group?artist= payload.
type BrowseReleaseGroupsResponse struct {
	Count         int            `json:"release-group-count"`
	Offset        int            `json:"release-group-offset"`
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

// Track is one track on a release medium.
type Track struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
}

// Medium is one disc of a release.
type Medium struct {
	Position int     `json:"position"`
	Tracks   []Track `json:"tracks"`
}

// Release is one release in a browse response.
type Release struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Date   string   `json:"date"`
	Media  []Medium `json:"media"`
}

// BrowseReleasesResponse is the /release?release-group= payload.
type BrowseReleasesResponse struct {
	Count    int       `json:"release-count"`
	Releases []Release `json:"releases"`
}

// ErrorResponse is a MusicBrainz error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
