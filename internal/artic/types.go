package artic

// SearchResponse is the body of GET /artworks/search
type SearchResponse struct {
	Pagination Pagination `json:"pagination"`
	Data       []Artwork  `json:"data"`
	Config     Config     `json:"config"`
}

// Pagination describes the returned page
type Pagination struct {
	Total       int `json:"total"`
	Limit       int `json:"limit"`
	Offset      int `json:"offset"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// Artwork is one search hit, limited to the requested fields
type Artwork struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Thumbnail   *Thumbnail `json:"thumbnail"`
	ImageID     *string    `json:"image_id"`
	ArtistTitle *string    `json:"artist_title"`
	APIModel    *string    `json:"api_model"`
	APILink     *string    `json:"api_link"`
}

// Thumbnail holds the preview image metadata
type Thumbnail struct {
	LQIP    *string `json:"lqip"`
	Width   *int    `json:"width"`
	Height  *int    `json:"height"`
	AltText *string `json:"alt_text"`
}

// Config carries response-level settings such as the IIIF image server
type Config struct {
	IIIFURL    string `json:"iiif_url"`
	WebsiteURL string `json:"website_url"`
}
