package loam

// StoryMetadata is the frontmatter of a story document. The document body is
// the script.
type StoryMetadata struct {
	ID          string         `json:"id" mapstructure:"id"`
	Title       string         `json:"title" mapstructure:"title"`
	AutoAdvance bool           `json:"auto_advance" mapstructure:"auto_advance"`
	Separator   string         `json:"separator" mapstructure:"separator"`
	Variables   map[string]any `json:"variables" mapstructure:"variables"`
}
