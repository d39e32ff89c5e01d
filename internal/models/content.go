package models

// PostFrontmatter is the YAML header of a blog post
type PostFrontmatter struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	PubDate     string   `yaml:"pubDate" json:"pubDate"`
	UpdatedDate string   `yaml:"updatedDate,omitempty" json:"updatedDate,omitempty"`
	HeroImage   string   `yaml:"heroImage,omitempty" json:"heroImage,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// BlogPost is a parsed Markdown post
type BlogPost struct {
	Slug        string          `json:"slug"`
	Extension   string          `json:"extension"`
	Frontmatter PostFrontmatter `json:"frontmatter"`
	Body        string          `json:"body"`
}

// MindStatus is the lifecycle state of a mind idea
type MindStatus string

const (
	MindStatusActive   MindStatus = "active"
	MindStatusArchived MindStatus = "archived"
)

// Thought is one entry appended to a mind idea
type Thought struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// ChangelogEntry records a change to a mind idea
type ChangelogEntry struct {
	Date        string `json:"date"`
	Action      string `json:"action"`
	Description string `json:"description"`
	ThoughtID   string `json:"thoughtId,omitempty"`
}

// MindIdea is a JSON document under the mind content directory
type MindIdea struct {
	ID          string           `json:"-"`
	Title       string           `json:"title"`
	Summary     string           `json:"summary"`
	CreatedDate string           `json:"createdDate"`
	UpdatedDate string           `json:"updatedDate"`
	Hashtags    []string         `json:"hashtags"`
	Status      MindStatus       `json:"status"`
	Thoughts    []Thought        `json:"thoughts"`
	Changelog   []ChangelogEntry `json:"changelog"`
}

// StoredImage describes a saved hero image
type StoredImage struct {
	Filename     string `json:"filename"`
	RelativePath string `json:"path"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
}

// HTMLDocument is the Markdown rendition of an HTML page plus its head metadata
type HTMLDocument struct {
	Title       string
	Description string
	Markdown    string
}
