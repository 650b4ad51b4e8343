package weaviate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"lectern/internal/retrieval"
	"lectern/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// entryID derives a stable object id so re-ingesting a course overwrites
// rather than accumulates entries.
func entryID(parts ...string) string {
	key := "lectern"
	for _, p := range parts {
		key += "/" + p
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// UpsertCourse replaces every chunk indexed under the entry's title and
// rewrites the catalog entry. Deletion happens first so a successful upsert
// never leaves stale duplicates behind.
func (s *Store) UpsertCourse(ctx context.Context, entry retrieval.CatalogEntry, titleVector []float32, chunks []retrieval.EmbeddedChunk) error {
	if err := s.deleteByTitle(ctx, vector.ClassCourseChunk, "courseTitle", entry.Title); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}
	if err := s.deleteByTitle(ctx, vector.ClassCourseCatalog, "title", entry.Title); err != nil {
		return fmt.Errorf("delete stale catalog entry: %w", err)
	}

	for _, c := range chunks {
		props := map[string]interface{}{
			"content":     c.Chunk.Content,
			"courseTitle": c.Chunk.CourseTitle,
			"chunkIndex":  c.Chunk.ChunkIndex,
		}
		lessonKey := "overview"
		if c.Chunk.LessonNumber != nil {
			props["lessonNumber"] = *c.Chunk.LessonNumber
			lessonKey = fmt.Sprintf("%d", *c.Chunk.LessonNumber)
		}

		_, err := s.client.Data().Creator().
			WithClassName(vector.ClassCourseChunk).
			WithID(entryID(entry.Title, lessonKey, fmt.Sprintf("%d", c.Chunk.ChunkIndex))).
			WithProperties(props).
			WithVector(c.Vector).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("store chunk %d: %w", c.Chunk.ChunkIndex, err)
		}
	}

	lessonsJSON, err := json.Marshal(entry.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	_, err = s.client.Data().Creator().
		WithClassName(vector.ClassCourseCatalog).
		WithID(entryID("catalog", entry.Title)).
		WithProperties(map[string]interface{}{
			"title":       entry.Title,
			"link":        entry.Link,
			"instructor":  entry.Instructor,
			"lessonCount": entry.LessonCount,
			"lessonsJson": string(lessonsJSON),
		}).
		WithVector(titleVector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("store catalog entry: %w", err)
	}
	return nil
}

func (s *Store) deleteByTitle(ctx context.Context, className, property, title string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{property}).
			WithOperator(filters.Equal).
			WithValueString(title)).
		Do(ctx)
	return err
}

// SearchChunks performs a nearVector search restricted to the optional
// course title and lesson number filters, ordered by ascending distance.
func (s *Store) SearchChunks(ctx context.Context, vec []float32, courseTitle string, lessonNumber *int, limit int) ([]retrieval.SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "courseTitle"},
		{Name: "lessonNumber"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	query := s.client.GraphQL().Get().
		WithClassName(vector.ClassCourseChunk).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...)

	var operands []*filters.WhereBuilder
	if courseTitle != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"courseTitle"}).
			WithOperator(filters.Equal).
			WithValueString(courseTitle))
	}
	if lessonNumber != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"lessonNumber"}).
			WithOperator(filters.Equal).
			WithValueInt(int64(*lessonNumber)))
	}
	switch len(operands) {
	case 0:
	case 1:
		query = query.WithWhere(operands[0])
	default:
		query = query.WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands(operands))
	}

	res, err := query.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var results []retrieval.SearchResult
	for _, props := range objects(res.Data, vector.ClassCourseChunk) {
		result := retrieval.SearchResult{}
		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if title, ok := props["courseTitle"].(string); ok {
			result.CourseTitle = title
		}
		if num, ok := props["lessonNumber"].(float64); ok {
			n := int(num)
			result.LessonNumber = &n
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				result.Distance = d
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// BestCatalogMatch returns the catalog entry closest to the embedded course
// name, with its certainty, or nil when the catalog is empty.
func (s *Store) BestCatalogMatch(ctx context.Context, vec []float32) (*retrieval.CatalogMatch, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := append(catalogFields(),
		graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}})

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassCourseCatalog).
		WithNearVector(nearVector).
		WithLimit(1).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	entries := objects(res.Data, vector.ClassCourseCatalog)
	if len(entries) == 0 {
		return nil, nil
	}

	match := &retrieval.CatalogMatch{Entry: parseCatalogEntry(entries[0])}
	if additional, ok := entries[0]["_additional"].(map[string]interface{}); ok {
		if c, ok := additional["certainty"].(float64); ok {
			match.Certainty = c
		}
	}
	return match, nil
}

func (s *Store) GetCatalogEntry(ctx context.Context, title string) (*retrieval.CatalogEntry, error) {
	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassCourseCatalog).
		WithWhere(filters.Where().
			WithPath([]string{"title"}).
			WithOperator(filters.Equal).
			WithValueString(title)).
		WithLimit(1).
		WithFields(catalogFields()...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	entries := objects(res.Data, vector.ClassCourseCatalog)
	if len(entries) == 0 {
		return nil, nil
	}
	entry := parseCatalogEntry(entries[0])
	return &entry, nil
}

func (s *Store) ListCatalog(ctx context.Context) ([]retrieval.CatalogEntry, error) {
	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassCourseCatalog).
		WithLimit(1000).
		WithFields(catalogFields()...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var entries []retrieval.CatalogEntry
	for _, props := range objects(res.Data, vector.ClassCourseCatalog) {
		entries = append(entries, parseCatalogEntry(props))
	}
	return entries, nil
}

func catalogFields() []graphql.Field {
	return []graphql.Field{
		{Name: "title"},
		{Name: "link"},
		{Name: "instructor"},
		{Name: "lessonCount"},
		{Name: "lessonsJson"},
	}
}

// objects unwraps the Get response envelope into per-object property maps.
func objects(data map[string]models.JSONObject, className string) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := get[className].([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, o := range raw {
		if props, ok := o.(map[string]interface{}); ok {
			out = append(out, props)
		}
	}
	return out
}

func parseCatalogEntry(props map[string]interface{}) retrieval.CatalogEntry {
	entry := retrieval.CatalogEntry{}
	if title, ok := props["title"].(string); ok {
		entry.Title = title
	}
	if link, ok := props["link"].(string); ok {
		entry.Link = link
	}
	if instructor, ok := props["instructor"].(string); ok {
		entry.Instructor = instructor
	}
	if count, ok := props["lessonCount"].(float64); ok {
		entry.LessonCount = int(count)
	}
	if lessons, ok := props["lessonsJson"].(string); ok && lessons != "" {
		_ = json.Unmarshal([]byte(lessons), &entry.Lessons)
	}
	return entry
}
