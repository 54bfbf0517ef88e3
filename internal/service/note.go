package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"docrepo/internal/model"
	"docrepo/internal/repository"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrTitleRequired = errors.New("title is required")
	ErrNotFound      = errors.New("note not found")
	ErrConflict      = errors.New("note already exists")
)

// NoteInput carries the client-editable fields of a note.
type NoteInput struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// NoteListResult is the service-level DTO for paginated notes.
type NoteListResult struct {
	Items []model.Note `json:"data"`
	Total int          `json:"total"`
}

// NoteService defines the use cases for handling notes.
type NoteService interface {
	// Create stores a new note with a generated id.
	Create(ctx context.Context, in NoteInput) (*model.Note, error)

	// Get returns a single note by its ID.
	Get(ctx context.Context, id string) (*model.Note, error)

	// List returns notes newest first using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*NoteListResult, error)

	// Update replaces the editable fields of an existing note.
	Update(ctx context.Context, id string, in NoteInput) (*model.Note, error)

	// Delete removes a note by ID.
	Delete(ctx context.Context, id string) error
}

type noteService struct {
	repo repository.Repository[model.Note, string]
	now  func() time.Time
}

// NewNoteService constructs a new NoteService.
func NewNoteService(repo repository.Repository[model.Note, string]) NoteService {
	return &noteService{repo: repo, now: time.Now}
}

func (s *noteService) Create(ctx context.Context, in NoteInput) (*model.Note, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	n := model.Note{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		Tags:      in.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored, err := s.repo.Write(ctx, n)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("write note: %w", err)
	}
	return &stored, nil
}

func (s *noteService) Get(ctx context.Context, id string) (*model.Note, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	n, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// List reads the whole collection; ordering across backends is not
// guaranteed, so notes are sorted here before paging.
func (s *noteService) List(ctx context.Context, limit, offset int) (*NoteListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var all []model.Note
	for n, err := range s.repo.LoadAll(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list notes: %w", err)
		}
		all = append(all, n)
	}
	slices.SortFunc(all, func(a, b model.Note) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	items := []model.Note{}
	if offset < len(all) {
		items = all[offset:min(offset+limit, len(all))]
	}
	return &NoteListResult{Items: items, Total: len(all)}, nil
}

func (s *noteService) Update(ctx context.Context, id string, in NoteInput) (*model.Note, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	n, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	n.Title = strings.TrimSpace(in.Title)
	n.Body = in.Body
	n.Tags = in.Tags
	n.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, n)
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return translate(err)
	}
	return nil
}

func (in NoteInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
