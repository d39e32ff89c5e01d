package transform

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Service converts imported HTML documents into Markdown posts
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// ConvertDocument parses a full HTML page. Title and description come from
// <title> (falling back to the first <h1>) and <meta name="description">.
// The first <h1> is dropped from the body when it repeats the title.
func (s *Service) ConvertDocument(html string) (*models.HTMLDocument, error) {
	if err := s.ValidateHTML(html); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	h1 := doc.Find("body h1").First()
	if title == "" {
		title = strings.TrimSpace(h1.Text())
	}
	if h1.Length() > 0 && strings.TrimSpace(h1.Text()) == title {
		h1.Remove()
	}

	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")

	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML body: %w", err)
	}

	markdown, err := s.HTMLToMarkdown(body, "")
	if err != nil {
		return nil, err
	}

	return &models.HTMLDocument{
		Title:       title,
		Description: strings.TrimSpace(description),
		Markdown:    markdown,
	}, nil
}

// HTMLToMarkdown converts HTML content to markdown
// baseURL is used for resolving relative links
func (s *Service) HTMLToMarkdown(html string, baseURL string) (string, error) {
	if html == "" {
		return "", nil
	}

	mdConverter := md.NewConverter(baseURL, true, nil)
	converted, err := mdConverter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		return stripHTMLTags(html), nil
	}

	if strings.TrimSpace(converted) == "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		return stripHTMLTags(html), nil
	}

	s.logger.Debug().
		Int("markdown_length", len(converted)).
		Int("html_length", len(html)).
		Msg("HTML to markdown conversion successful")

	return converted, nil
}

// stripHTMLTags removes basic HTML tags for fallback cases
func stripHTMLTags(htmlStr string) string {
	stripped := tagPattern.ReplaceAllString(htmlStr, "")
	cleaned := spacePattern.ReplaceAllString(stripped, " ")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(cleaned))
}

// ValidateHTML checks if the input looks like HTML
func (s *Service) ValidateHTML(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("empty content")
	}
	if !strings.Contains(trimmed, "<") {
		return fmt.Errorf("content does not appear to be HTML")
	}
	return nil
}

var _ interfaces.DocumentConverter = (*Service)(nil)
