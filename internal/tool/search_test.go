package tool_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lectern/internal/retrieval"
	"lectern/internal/tool"
)

type MockIndex struct{ mock.Mock }

func (m *MockIndex) Query(ctx context.Context, query, courseTitle string, lessonNumber *int, limit int) ([]retrieval.SearchResult, error) {
	args := m.Called(ctx, query, courseTitle, lessonNumber, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.SearchResult), args.Error(1)
}

func (m *MockIndex) ResolveCourseName(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockIndex) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	return m.Called(ctx, courseTitle, lessonNumber).String(0)
}

func (m *MockIndex) GetOutline(ctx context.Context, name string) (*retrieval.CatalogEntry, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*retrieval.CatalogEntry), args.Error(1)
}

func TestSearchTool_Schema(t *testing.T) {
	schema := tool.NewSearchTool(new(MockIndex)).Schema()
	assert.Equal(t, "search_course_content", schema.Name)
	require.Len(t, schema.Params, 3)
	assert.True(t, schema.Params[0].Required)
	assert.False(t, schema.Params[1].Required)
	assert.False(t, schema.Params[2].Required)
}

func TestSearchTool_Execute(t *testing.T) {
	ctx := context.Background()
	one := 1

	t.Run("formats results and emits sources", func(t *testing.T) {
		index := new(MockIndex)
		index.On("ResolveCourseName", ctx, "Intro to Testing").Return("Intro to Testing", nil)
		index.On("Query", ctx, "what is covered", "Intro to Testing", &one, 0).Return([]retrieval.SearchResult{
			{Content: "chunk one", CourseTitle: "Intro to Testing", LessonNumber: &one},
			{Content: "chunk two", CourseTitle: "Intro to Testing", LessonNumber: &one},
		}, nil)
		index.On("GetLessonLink", ctx, "Intro to Testing", 1).Return("https://example.com/1")

		result, err := tool.NewSearchTool(index).Execute(ctx, map[string]any{
			"query":         "what is covered",
			"course_name":   "Intro to Testing",
			"lesson_number": float64(1), // JSON numbers decode as float64
		})
		require.NoError(t, err)

		assert.Equal(t, "[Intro to Testing - Lesson 1]\nchunk one\n\n[Intro to Testing - Lesson 1]\nchunk two", result.Text)
		require.Len(t, result.Sources, 2)
		assert.Equal(t, "Intro to Testing - Lesson 1", result.Sources[0].Text)
		assert.Equal(t, "https://example.com/1", result.Sources[0].Link)
	})

	t.Run("unresolvable course name is a normal outcome", func(t *testing.T) {
		index := new(MockIndex)
		index.On("ResolveCourseName", ctx, "Basket Weaving").
			Return("", retrieval.ErrCourseNotFound)

		result, err := tool.NewSearchTool(index).Execute(ctx, map[string]any{
			"query":       "anything",
			"course_name": "Basket Weaving",
		})
		require.NoError(t, err)
		assert.Equal(t, "No course found matching 'Basket Weaving'.", result.Text)
		assert.Empty(t, result.Sources)
		index.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty results mention active filters", func(t *testing.T) {
		index := new(MockIndex)
		index.On("ResolveCourseName", ctx, "Intro").Return("Intro to Testing", nil)
		index.On("Query", ctx, "nothing", "Intro to Testing", &one, 0).
			Return([]retrieval.SearchResult{}, nil)

		result, err := tool.NewSearchTool(index).Execute(ctx, map[string]any{
			"query":         "nothing",
			"course_name":   "Intro",
			"lesson_number": 1,
		})
		require.NoError(t, err)
		assert.Equal(t, "No relevant content found in course 'Intro to Testing' in lesson 1.", result.Text)
		assert.Empty(t, result.Sources)
	})

	t.Run("empty index yields plain no-content message", func(t *testing.T) {
		index := new(MockIndex)
		index.On("Query", ctx, "anything", "", (*int)(nil), 0).
			Return([]retrieval.SearchResult{}, nil)

		result, err := tool.NewSearchTool(index).Execute(ctx, map[string]any{"query": "anything"})
		require.NoError(t, err)
		assert.Equal(t, "No relevant content found.", result.Text)
	})

	t.Run("index failure degrades to unavailable message", func(t *testing.T) {
		index := new(MockIndex)
		index.On("Query", ctx, "q", "", (*int)(nil), 0).
			Return(nil, errors.New("weaviate down"))

		result, err := tool.NewSearchTool(index).Execute(ctx, map[string]any{"query": "q"})
		require.NoError(t, err)
		assert.Equal(t, "Search is currently unavailable.", result.Text)
		assert.Empty(t, result.Sources)
	})

	t.Run("missing query", func(t *testing.T) {
		result, err := tool.NewSearchTool(new(MockIndex)).Execute(ctx, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "A search query is required.", result.Text)
	})
}
