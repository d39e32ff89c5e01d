package interfaces

import "github.com/ternarybob/folio/internal/models"

// DocumentConverter turns uploaded HTML posts into Markdown
type DocumentConverter interface {
	// ConvertDocument converts a full HTML page, lifting title and description from its head
	ConvertDocument(html string) (*models.HTMLDocument, error)

	// HTMLToMarkdown converts an HTML fragment. baseURL resolves relative links.
	HTMLToMarkdown(html string, baseURL string) (string, error)
}
