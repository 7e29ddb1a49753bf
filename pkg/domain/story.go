package domain

// StorySource is a script as a story library stores it, together with the
// settings the engine should run it with.
type StorySource struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title,omitempty" mapstructure:"title"`
	// Script is the raw source text.
	Script string `json:"-" mapstructure:"-"`

	AutoAdvance bool           `json:"auto_advance,omitempty" mapstructure:"auto_advance"`
	Separator   string         `json:"separator,omitempty" mapstructure:"separator"`
	Variables   map[string]any `json:"variables,omitempty" mapstructure:"variables"`
}
