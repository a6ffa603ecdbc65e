package domain

import "time"

// DefaultDimension is used for width and height when a request omits them or passes zero.
const DefaultDimension = 5

// Dimension is an optional width or height. The zero value is "not provided".
type Dimension struct {
	value int
	set   bool
}

// NewDimension returns a provided dimension.
func NewDimension(v int) Dimension {
	return Dimension{value: v, set: true}
}

// IsSet reports whether a value was provided.
func (d Dimension) IsSet() bool {
	return d.set
}

// Value returns the raw provided value and whether it was provided.
func (d Dimension) Value() (int, bool) {
	return d.value, d.set
}

// OrDefault resolves the dimension. Absent and zero both resolve to DefaultDimension.
func (d Dimension) OrDefault() int {
	if !d.set || d.value == 0 {
		return DefaultDimension
	}
	return d.value
}

// RenditionRequest - a client's request for an original resized to a bounding box
type RenditionRequest struct {
	ImageKey string
	Bucket   string
	Width    Dimension
	Height   Dimension
}

// Redirect is the only output of a successful fill.
type Redirect struct {
	Location string `json:"location"`
}

// Visibility of a stored object
type Visibility string

const (
	PublicRead Visibility = "public-read"
	Private    Visibility = "private"
)

// Object - bytes fetched from a store along with the stored content type
type Object struct {
	Data        []byte
	ContentType string
}

// Rendition - record of a completed fill
type Rendition struct {
	SourceKey    string    `json:"source_key" dynamodbav:"source_key"`       // Original key - Partition Key
	RenditionKey string    `json:"rendition_key" dynamodbav:"rendition_key"` // Canonical key - Sort Key
	Bucket       string    `json:"bucket" dynamodbav:"bucket"`
	Width        int       `json:"width" dynamodbav:"width"`
	Height       int       `json:"height" dynamodbav:"height"`
	Format       string    `json:"format" dynamodbav:"format"`
	ContentType  string    `json:"content_type" dynamodbav:"content_type"`
	Size         int64     `json:"size" dynamodbav:"size"`
	FilledAt     time.Time `json:"filled_at" dynamodbav:"filled_at"`
}
