package content

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ternarybob/folio/internal/models"
)

// imageExtensions maps accepted upload content types to file extensions
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// SaveImage stores a hero image under the assets directory.
// The file is named after slug when one is given, otherwise after the upload time.
// RelativePath is the path a post's heroImage frontmatter uses.
func (s *Service) SaveImage(ctx context.Context, slug, filename, contentType string, data []byte) (*models.StoredImage, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, invalid("invalid file type %q. Only JPEG, PNG, WebP and GIF are allowed", contentType)
	}
	if len(data) == 0 {
		return nil, invalid("image is empty")
	}
	if int64(len(data)) > s.config.MaxImageSize {
		return nil, invalid("file too large. Maximum size is %dMB", s.config.MaxImageSize/(1024*1024))
	}

	var name string
	if clean := Slugify(slug); clean != "" {
		name = fmt.Sprintf("%s-hero.%s", clean, ext)
	} else {
		name = fmt.Sprintf("hero-%d.%s", s.clock().UnixMilli(), ext)
	}

	if err := replaceFile(filepath.Join(s.config.AssetsDir, name), data); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	s.logger.Info().
		Str("filename", name).
		Str("original", filename).
		Int("size", len(data)).
		Msg("Hero image saved")

	return &models.StoredImage{
		Filename:     name,
		RelativePath: "../../assets/" + name,
		Size:         int64(len(data)),
		ContentType:  contentType,
	}, nil
}
