package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

// CreateIdeaInput is the body of POST /api/mind/create
type CreateIdeaInput struct {
	Title    string   `json:"title" validate:"required"`
	Summary  string   `json:"summary" validate:"required"`
	Hashtags []string `json:"hashtags"`
}

// AddThoughtInput is the body of POST /api/mind/thought
type AddThoughtInput struct {
	IdeaID   string   `json:"ideaId" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	Hashtags []string `json:"hashtags"`
}

func (s *Service) ideaPath(id string) string {
	return filepath.Join(s.config.MindDir, id+".json")
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func mergeHashtags(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, tag := range append(append([]string{}, existing...), added...) {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

func encodeIdea(idea *models.MindIdea) ([]byte, error) {
	data, err := json.MarshalIndent(idea, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode idea: %w", err)
	}
	return append(data, '\n'), nil
}

// CreateIdea starts a new mind idea. The id is the slug of its title.
func (s *Service) CreateIdea(ctx context.Context, input CreateIdeaInput) (*models.MindIdea, error) {
	title := strings.TrimSpace(input.Title)
	id := Slugify(title)
	if id == "" {
		return nil, invalid("title is required")
	}
	if strings.TrimSpace(input.Summary) == "" {
		return nil, invalid("summary is required")
	}

	today := s.today()
	idea := &models.MindIdea{
		ID:          id,
		Title:       title,
		Summary:     strings.TrimSpace(input.Summary),
		CreatedDate: today,
		UpdatedDate: today,
		Hashtags:    normalizeHashtags(input.Hashtags),
		Status:      models.MindStatusActive,
		Thoughts:    []models.Thought{},
		Changelog: []models.ChangelogEntry{{
			Date:        today,
			Action:      "created",
			Description: "Idea created",
		}},
	}

	data, err := encodeIdea(idea)
	if err != nil {
		return nil, err
	}

	s.mindMu.Lock()
	defer s.mindMu.Unlock()

	if err := createFile(s.ideaPath(id), data); err != nil {
		return nil, err
	}

	s.logger.Info().Str("idea_id", id).Str("title", title).Msg("Mind idea created")
	return idea, nil
}

// GetIdea loads an idea by id
func (s *Service) GetIdea(ctx context.Context, id string) (*models.MindIdea, error) {
	if id == "" || Slugify(id) != id {
		return nil, invalid("invalid idea id %q", id)
	}
	return s.readIdea(id)
}

func (s *Service) readIdea(id string) (*models.MindIdea, error) {
	data, err := os.ReadFile(s.ideaPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: idea %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idea %s: %w", id, err)
	}

	var idea models.MindIdea
	if err := json.Unmarshal(data, &idea); err != nil {
		return nil, fmt.Errorf("failed to decode idea %s: %w", id, err)
	}
	idea.ID = id
	return &idea, nil
}

// AddThought appends a thought to an existing idea and records it in the changelog
func (s *Service) AddThought(ctx context.Context, input AddThoughtInput) (*models.MindIdea, *models.Thought, error) {
	id := strings.TrimSpace(input.IdeaID)
	if id == "" || Slugify(id) != id {
		return nil, nil, invalid("invalid idea id %q", input.IdeaID)
	}
	text := strings.TrimSpace(input.Content)
	if text == "" {
		return nil, nil, invalid("thought content is required")
	}

	s.mindMu.Lock()
	defer s.mindMu.Unlock()

	idea, err := s.readIdea(id)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	today := now.Format("2006-01-02")
	hashtags := normalizeHashtags(input.Hashtags)
	thought := models.Thought{
		ID:       common.NewThoughtID(now),
		Date:     today,
		Content:  text,
		Hashtags: hashtags,
	}

	idea.Thoughts = append(idea.Thoughts, thought)
	idea.Hashtags = mergeHashtags(idea.Hashtags, hashtags)
	idea.UpdatedDate = today
	idea.Changelog = append(idea.Changelog, models.ChangelogEntry{
		Date:        today,
		Action:      "thought_added",
		Description: "Added a new thought",
		ThoughtID:   thought.ID,
	})

	data, err := encodeIdea(idea)
	if err != nil {
		return nil, nil, err
	}
	if err := replaceFile(s.ideaPath(id), data); err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("idea_id", id).Str("thought_id", thought.ID).Msg("Thought added")
	return idea, &thought, nil
}
