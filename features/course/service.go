package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lectern/internal/middleware"
	"lectern/internal/retrieval"
	"lectern/internal/text"
)

const TopicCourseIngested = "course.ingested"

// ErrUntitledDocument is returned when a document carries no Course Title
// header and no title was supplied alongside it. Titles key the catalog,
// so an untitled course would be unaddressable by the search tools.
var ErrUntitledDocument = errors.New("document has no title")

// Index is the part of the retrieval layer ingestion and listing need.
type Index interface {
	UpsertCourse(ctx context.Context, course *text.Course, chunks []text.Chunk) (*retrieval.CatalogEntry, error)
	ListCatalog(ctx context.Context) ([]retrieval.CatalogEntry, error)
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

type IngestResult struct {
	Title       string `json:"title"`
	LessonCount int    `json:"lesson_count"`
	ChunkCount  int    `json:"chunk_count"`
}

type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

type Service struct {
	index     Index
	pub       Publisher
	chunkSize int
	overlap   int
}

// NewService builds the ingestion service. pub may be nil when no message
// bus is configured; events are then skipped.
func NewService(index Index, pub Publisher, chunkSize, overlap int) *Service {
	return &Service{index: index, pub: pub, chunkSize: chunkSize, overlap: overlap}
}

// Ingest parses a raw course document, chunks it, and replaces the course's
// indexed content wholesale. sourceID names where the document came from
// (a filename or upload name) and doubles as the title fallback.
func (s *Service) Ingest(ctx context.Context, raw, sourceID string) (*IngestResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("document is empty")
	}

	course := text.ParseCourseDocument(raw, sourceID)
	if strings.TrimSpace(course.Title) == "" {
		return nil, ErrUntitledDocument
	}
	chunks := text.ChunkCourse(course, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no indexable content")
	}

	entry, err := s.index.UpsertCourse(ctx, course, chunks)
	if err != nil {
		return nil, fmt.Errorf("index course %q: %w", course.Title, err)
	}

	s.publishIngested(ctx, entry, len(chunks), sourceID)

	return &IngestResult{
		Title:       entry.Title,
		LessonCount: entry.LessonCount,
		ChunkCount:  len(chunks),
	}, nil
}

// publishIngested emits the ingestion event. Delivery failures are logged
// and swallowed; the index write already succeeded.
func (s *Service) publishIngested(ctx context.Context, entry *retrieval.CatalogEntry, chunkCount int, sourceID string) {
	if s.pub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"title":          entry.Title,
		"lesson_count":   entry.LessonCount,
		"chunk_count":    chunkCount,
		"source_id":      sourceID,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(TopicCourseIngested, payload); err != nil {
		slog.Error("failed to publish course.ingested event", "error", err, "title", entry.Title)
	} else {
		slog.Info("published course.ingested event", "title", entry.Title, "chunks", chunkCount)
	}
}

// LoadDir ingests every .txt and .md file in dir, skipping courses whose
// titles are already in the catalog. Missing directories are not an error
// so a fresh deployment can start without seed documents.
func (s *Service) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("documents directory not found, skipping startup load", "dir", dir)
			return 0, nil
		}
		return 0, fmt.Errorf("read documents directory: %w", err)
	}

	existing := make(map[string]bool)
	catalog, err := s.index.ListCatalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}
	for _, c := range catalog {
		existing[c.Title] = true
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path) // #nosec G304 -- path is from the configured docs dir listing
		if err != nil {
			slog.Warn("failed to read course document", "error", err, "path", path)
			continue
		}

		title := text.ParseCourseDocument(string(raw), e.Name()).Title
		if existing[title] {
			slog.Debug("course already indexed, skipping", "title", title, "path", path)
			continue
		}

		result, err := s.Ingest(ctx, string(raw), e.Name())
		if err != nil {
			slog.Error("failed to ingest course document", "error", err, "path", path)
			continue
		}
		existing[result.Title] = true
		loaded++
	}

	slog.Info("startup document load complete", "dir", dir, "loaded", loaded)
	return loaded, nil
}

// List reports catalog analytics: the course count and sorted titles.
func (s *Service) List(ctx context.Context) (*Analytics, error) {
	catalog, err := s.index.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(catalog))
	for _, c := range catalog {
		titles = append(titles, c.Title)
	}
	sort.Strings(titles)

	return &Analytics{TotalCourses: len(titles), CourseTitles: titles}, nil
}
