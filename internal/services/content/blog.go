package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/folio/internal/models"
	"gopkg.in/yaml.v3"
)

// PostExtensions are the Markdown file types accepted as posts
var PostExtensions = []string{".md", ".mdx", ".markdown"}

// CreatePostInput is the body of POST /api/blog/create
type CreatePostInput struct {
	Title       string   `json:"title" validate:"required"`
	Slug        string   `json:"slug" validate:"required"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	HeroImage   string   `json:"heroImage"`
	Tags        []string `json:"tags"`
}

// splitFrontmatter separates a leading --- block from the body
func splitFrontmatter(text string) (frontmatter, body string, ok bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return "", "", false
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-len("\n---")], "", true
		}
		return "", "", false
	}
	return rest[:end], rest[end+len("\n---\n"):], true
}

// ParsePost reads frontmatter and body from a Markdown document.
// title and description are required.
func ParsePost(data []byte) (models.PostFrontmatter, string, error) {
	var fm models.PostFrontmatter

	raw, body, ok := splitFrontmatter(string(data))
	if !ok {
		return fm, "", invalid("file must include frontmatter (---...---)")
	}
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return fm, "", invalid("frontmatter is not valid YAML: %v", err)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return fm, "", invalid(`frontmatter must include "title"`)
	}
	if strings.TrimSpace(fm.Description) == "" {
		return fm, "", invalid(`frontmatter must include "description"`)
	}
	return fm, body, nil
}

func renderPostFile(fm models.PostFrontmatter, body string) ([]byte, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// findPost returns the path of the post file for slug, if any
func (s *Service) findPost(slug string) (string, string, bool) {
	for _, ext := range PostExtensions {
		path := filepath.Join(s.config.BlogDir, slug+ext)
		if _, err := os.Stat(path); err == nil {
			return path, ext, true
		}
	}
	return "", "", false
}

// UploadPost stores an uploaded post. Markdown files keep their text (with
// pubDate added when missing); HTML files are converted to Markdown.
// The slug is derived from the file name.
func (s *Service) UploadPost(ctx context.Context, filename string, data []byte) (*models.BlogPost, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	slug := Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if slug == "" {
		return nil, invalid("file name %q does not produce a slug", filename)
	}

	var (
		fm     models.PostFrontmatter
		body   string
		output []byte
		err    error
	)

	switch ext {
	case ".md", ".mdx", ".markdown":
		fm, body, err = ParsePost(data)
		if err != nil {
			return nil, err
		}
		output = data
		if fm.PubDate == "" {
			fm.PubDate = s.today()
			output = insertPubDate(data, fm.PubDate)
		}

	case ".html", ".htm":
		doc, convErr := s.transform.ConvertDocument(string(data))
		if convErr != nil {
			return nil, invalid("%v", convErr)
		}
		fm = models.PostFrontmatter{
			Title:       doc.Title,
			Description: doc.Description,
			PubDate:     s.today(),
		}
		if fm.Title == "" {
			return nil, invalid("HTML document has no <title> or <h1>")
		}
		if fm.Description == "" {
			return nil, invalid(`HTML document has no <meta name="description">`)
		}
		body = doc.Markdown + "\n"
		ext = ".md"
		if output, err = renderPostFile(fm, body); err != nil {
			return nil, err
		}

	default:
		return nil, invalid("invalid file type. Only .md, .mdx, .markdown and .html files are allowed")
	}

	if _, _, exists := s.findPost(slug); exists {
		return nil, fmt.Errorf("%w: a post with slug %q already exists", ErrConflict, slug)
	}
	if err := createFile(filepath.Join(s.config.BlogDir, slug+ext), output); err != nil {
		return nil, err
	}

	s.logger.Info().Str("slug", slug).Str("title", fm.Title).Msg("Blog post uploaded")

	return &models.BlogPost{Slug: slug, Extension: ext, Frontmatter: fm, Body: body}, nil
}

// insertPubDate appends a pubDate line to the end of the frontmatter block
func insertPubDate(data []byte, date string) []byte {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	return []byte("---\n" + rest[:end] + "\npubDate: " + date + rest[end:])
}

// CreatePost writes a new Markdown post from form fields
func (s *Service) CreatePost(ctx context.Context, input CreatePostInput) (*models.BlogPost, error) {
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(input.Title)
	}
	if slug == "" || strings.TrimSpace(input.Title) == "" {
		return nil, invalid("title and slug are required")
	}

	fm := models.PostFrontmatter{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		PubDate:     s.today(),
		HeroImage:   input.HeroImage,
		Tags:        input.Tags,
	}
	body := input.Content
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	output, err := renderPostFile(fm, body)
	if err != nil {
		return nil, err
	}

	if _, _, exists := s.findPost(slug); exists {
		return nil, fmt.Errorf("%w: a post with slug %q already exists", ErrConflict, slug)
	}
	if err := createFile(filepath.Join(s.config.BlogDir, slug+".md"), output); err != nil {
		return nil, err
	}

	s.logger.Info().Str("slug", slug).Str("title", fm.Title).Msg("Blog post created")

	return &models.BlogPost{Slug: slug, Extension: ".md", Frontmatter: fm, Body: body}, nil
}

// GetPost loads a post by slug
func (s *Service) GetPost(ctx context.Context, slug string) (*models.BlogPost, error) {
	if slug == "" || Slugify(slug) != slug {
		return nil, invalid("invalid slug %q", slug)
	}
	path, ext, ok := s.findPost(slug)
	if !ok {
		return nil, fmt.Errorf("%w: post %q", ErrNotFound, slug)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: post %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read post %s: %w", slug, err)
	}

	fm, body, err := ParsePost(data)
	if err != nil {
		return nil, err
	}
	return &models.BlogPost{Slug: slug, Extension: ext, Frontmatter: fm, Body: body}, nil
}

// RenderPost renders a post body to HTML
func (s *Service) RenderPost(ctx context.Context, slug string) (string, *models.BlogPost, error) {
	post, err := s.GetPost(ctx, slug)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(post.Body), &buf); err != nil {
		return "", nil, fmt.Errorf("failed to render post %s: %w", slug, err)
	}
	return buf.String(), post, nil
}
