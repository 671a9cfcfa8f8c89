package jellyfin

// itemsResponse is the envelope for /Items queries.
type itemsResponse struct {
	Items            []item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// item is a Jellyfin library item. Only the fields the normalizer needs are
// mapped; everything else stays at the wire boundary.
type item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	ProductionYear    int               `json:"ProductionYear"`
	Path              string            `json:"Path"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	MediaStreams      []mediaStream     `json:"MediaStreams"`
	SeriesID          string            `json:"SeriesId"`
	SeriesName        string            `json:"SeriesName"`
	ParentIndexNumber int               `json:"ParentIndexNumber"`
	IndexNumber       int               `json:"IndexNumber"`
	AlbumID           string            `json:"AlbumId"`
	AlbumArtist       string            `json:"AlbumArtist"`
	ChildCount        int               `json:"ChildCount"`
}

type mediaStream struct {
	Type           string `json:"Type"` // "Video" or "Audio"
	Codec          string `json:"Codec"`
	Width          int    `json:"Width"`
	Height         int    `json:"Height"`
	BitRate        int    `json:"BitRate"`
	Channels       int    `json:"Channels"`
	BitDepth       int    `json:"BitDepth"`
	SampleRate     int    `json:"SampleRate"`
	VideoRangeType string `json:"VideoRangeType"`
}

type errorResponse struct {
	Message string `json:"Message"`
}
