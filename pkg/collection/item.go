package collection

// Item is one persisted record of a collection, keyed globally by ID.
type Item struct {
	ID               int     `json:"id" yaml:"id"`
	Title            string  `json:"title" yaml:"title"`
	OwnerKey         string  `json:"owner_key" yaml:"owner_key"`
	ExternalImageRef string  `json:"image_ref" yaml:"image_ref"`
	Width            int     `json:"width" yaml:"width"`
	Height           int     `json:"height" yaml:"height"`
	AltText          *string `json:"alt_text,omitempty" yaml:"alt_text,omitempty"`
	Page             int     `json:"page" yaml:"page"`
	PartitionKey     string  `json:"partition_key" yaml:"partition_key"`
}

// AspectRatio returns height/width, or 1 when the width is unknown.
func (i Item) AspectRatio() float64 {
	if i.Width <= 0 {
		return 1
	}
	return float64(i.Height) / float64(i.Width)
}
