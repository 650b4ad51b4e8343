package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lectern/internal/retrieval"
)

// SearchIndex is the slice of the retrieval service the search capability
// needs.
type SearchIndex interface {
	Query(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) ([]retrieval.SearchResult, error)
	ResolveCourseName(ctx context.Context, name string) (string, error)
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string
}

// SearchTool searches course content with fuzzy course-name matching and
// lesson filtering.
type SearchTool struct {
	index SearchIndex
}

func NewSearchTool(index SearchIndex) *SearchTool {
	return &SearchTool{index: index}
}

func (t *SearchTool) Schema() Schema {
	return Schema{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		Params: []Param{
			{Name: "query", Type: "string", Description: "What to search for in the course content", Required: true},
			{Name: "course_name", Type: "string", Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')"},
			{Name: "lesson_number", Type: "integer", Description: "Specific lesson number to search within (e.g. 1, 2, 3)"},
		},
	}
}

// Execute resolves the optional fuzzy course name, runs the filtered query,
// and formats results with their course/lesson context. Unresolvable names
// and empty result sets are reported as text, never as errors; index
// failures degrade to a "search unavailable" message so the model can still
// answer from general knowledge.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	query, ok := stringArg(args, "query")
	if !ok {
		return Result{Text: "A search query is required."}, nil
	}

	courseTitle := ""
	if name, ok := stringArg(args, "course_name"); ok {
		resolved, err := t.index.ResolveCourseName(ctx, name)
		if errors.Is(err, retrieval.ErrCourseNotFound) {
			return Result{Text: fmt.Sprintf("No course found matching '%s'.", name)}, nil
		}
		if err != nil {
			slog.WarnContext(ctx, "course name resolution failed", "course_name", name, "error", err)
			return Result{Text: "Search is currently unavailable."}, nil
		}
		courseTitle = resolved
	}

	var lessonNumber *int
	if n, ok := intArg(args, "lesson_number"); ok {
		lessonNumber = &n
	}

	results, err := t.index.Query(ctx, query, courseTitle, lessonNumber, 0)
	if err != nil {
		slog.WarnContext(ctx, "content search failed", "query", query, "error", err)
		return Result{Text: "Search is currently unavailable."}, nil
	}

	if len(results) == 0 {
		return Result{Text: emptyMessage(courseTitle, lessonNumber)}, nil
	}
	return t.formatResults(ctx, results), nil
}

func emptyMessage(courseTitle string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseTitle != "" {
		msg += fmt.Sprintf(" in course '%s'", courseTitle)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

func (t *SearchTool) formatResults(ctx context.Context, results []retrieval.SearchResult) Result {
	var blocks []string
	var sources []Source

	for _, r := range results {
		header := "[" + r.CourseTitle
		label := r.CourseTitle
		link := r.LessonLink
		if r.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *r.LessonNumber)
			label += fmt.Sprintf(" - Lesson %d", *r.LessonNumber)
			if link == "" {
				link = t.index.GetLessonLink(ctx, r.CourseTitle, *r.LessonNumber)
			}
		}
		header += "]"

		blocks = append(blocks, header+"\n"+r.Content)
		sources = append(sources, Source{Text: label, Link: link})
	}

	return Result{Text: strings.Join(blocks, "\n\n"), Sources: sources}
}
