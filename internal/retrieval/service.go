package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/text"
)

// ErrCourseNotFound signals that fuzzy course-name resolution produced no
// catalog entry above the certainty threshold. Callers treat it as a normal
// outcome, not a failure.
var ErrCourseNotFound = errors.New("no matching course found")

type SearchResult struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	LessonLink   string `json:"lesson_link,omitempty"`
	Distance     float64 `json:"distance"`
}

type LessonRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

type CatalogEntry struct {
	Title       string      `json:"title"`
	Link        string      `json:"link,omitempty"`
	Instructor  string      `json:"instructor,omitempty"`
	LessonCount int         `json:"lesson_count"`
	Lessons     []LessonRef `json:"lessons,omitempty"`
}

// CatalogMatch is the closest catalog entry to an embedded course name.
type CatalogMatch struct {
	Entry     CatalogEntry
	Certainty float64
}

// EmbeddedChunk pairs a chunk with its embedding, ready for storage.
type EmbeddedChunk struct {
	Chunk  text.Chunk
	Vector []float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Store interface {
	UpsertCourse(ctx context.Context, entry CatalogEntry, titleVector []float32, chunks []EmbeddedChunk) error
	SearchChunks(ctx context.Context, vector []float32, courseTitle string, lessonNumber *int, limit int) ([]SearchResult, error)
	BestCatalogMatch(ctx context.Context, vector []float32) (*CatalogMatch, error)
	GetCatalogEntry(ctx context.Context, title string) (*CatalogEntry, error)
	ListCatalog(ctx context.Context) ([]CatalogEntry, error)
}

// Service is the semantic index over course chunks: it owns embedding,
// filtered nearest-neighbor search, and fuzzy course-name resolution.
type Service struct {
	embedder   Embedder
	store      Store
	logger     *QueryLogger
	maxResults int
	certainty  float64

	// Per-course locks: ingestion of a course is exclusive with queries
	// filtered to that same course. Different courses never contend.
	locks sync.Map // title -> *sync.RWMutex
}

func NewService(e Embedder, s Store, l *QueryLogger, maxResults int, certainty float64) *Service {
	return &Service{
		embedder:   e,
		store:      s,
		logger:     l,
		maxResults: maxResults,
		certainty:  certainty,
	}
}

func (s *Service) lockFor(title string) *sync.RWMutex {
	v, _ := s.locks.LoadOrStore(title, &sync.RWMutex{})
	return v.(*sync.RWMutex)
}

// UpsertCourse replaces all indexed entries for the course title and writes
// its catalog entry. The pipeline produced the chunks; this side embeds them.
func (s *Service) UpsertCourse(ctx context.Context, course *text.Course, chunks []text.Chunk) (*CatalogEntry, error) {
	embedded := make([]EmbeddedChunk, 0, len(chunks))
	for _, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c.Content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", c.ChunkIndex, err)
		}
		embedded = append(embedded, EmbeddedChunk{Chunk: c, Vector: vec})
	}

	titleVec, err := s.embedder.Embed(ctx, course.Title)
	if err != nil {
		return nil, fmt.Errorf("embed course title: %w", err)
	}

	entry := CatalogEntry{
		Title:       course.Title,
		Link:        course.Link,
		Instructor:  course.Instructor,
		LessonCount: len(course.Lessons),
	}
	for _, l := range course.Lessons {
		entry.Lessons = append(entry.Lessons, LessonRef{Number: l.Number, Title: l.Title, Link: l.Link})
	}

	mu := s.lockFor(course.Title)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.UpsertCourse(ctx, entry, titleVec, embedded); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "course indexed", "title", course.Title, "chunks", len(embedded))
	return &entry, nil
}

// Query embeds the query text and searches chunks, optionally restricted to
// an exact course title and/or lesson number. An empty index yields empty
// results, not an error. Results come back in ascending distance order.
func (s *Service) Query(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) ([]SearchResult, error) {
	start := time.Now()
	if limit <= 0 {
		limit = s.maxResults
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if courseTitle != "" {
		mu := s.lockFor(courseTitle)
		mu.RLock()
		defer mu.RUnlock()
	}

	results, err := s.store.SearchChunks(ctx, vec, courseTitle, lessonNumber, limit)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:        query,
			CourseTitle:  courseTitle,
			LessonNumber: lessonNumber,
			NumResults:   len(results),
			Duration:     time.Since(start),
		})
	}
	return results, nil
}

// ResolveCourseName maps a partial or misspelled course name to the exact
// catalog title via embedding distance over catalog titles. Resolution below
// the certainty threshold, or against an empty catalog, is ErrCourseNotFound.
func (s *Service) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vec, err := s.embedder.Embed(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}

	match, err := s.store.BestCatalogMatch(ctx, vec)
	if err != nil {
		return "", err
	}
	if match == nil || match.Certainty < s.certainty {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}
	return match.Entry.Title, nil
}

// GetOutline resolves a fuzzy course name and returns its catalog entry,
// including lesson titles and links.
func (s *Service) GetOutline(ctx context.Context, name string) (*CatalogEntry, error) {
	title, err := s.ResolveCourseName(ctx, name)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.GetCatalogEntry(ctx, title)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}
	return entry, nil
}

// GetLessonLink returns the stored link for a lesson, or "" when unknown.
func (s *Service) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	entry, err := s.store.GetCatalogEntry(ctx, courseTitle)
	if err != nil || entry == nil {
		return ""
	}
	for _, l := range entry.Lessons {
		if l.Number == lessonNumber {
			return l.Link
		}
	}
	return ""
}

func (s *Service) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	return s.store.ListCatalog(ctx)
}
