package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "lectern/internal/adapter/weaviate"
	"lectern/internal/retrieval"
	"lectern/internal/text"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/meta" {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"version": "1.19.0"}`))
				return
			}
			handler(w, r)
		}
	}())
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	require.NoError(t, err)
	return client, ts
}

func graphqlResponse(t *testing.T, w http.ResponseWriter, className string, objs []map[string]interface{}) {
	t.Helper()
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"Get": map[string]interface{}{className: objs},
		},
	}
	w.WriteHeader(http.StatusOK)
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestStore_UpsertCourse(t *testing.T) {
	var deletes, creates int
	var createdClasses []string

	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/batch/objects" && r.Method == http.MethodDelete:
			deletes++
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{})
		case r.URL.Path == "/v1/objects" && r.Method == http.MethodPost:
			creates++
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			createdClasses = append(createdClasses, body["class"].(string))
			assert.NotEmpty(t, body["id"], "objects must carry deterministic ids")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": body["id"]})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})
	defer ts.Close()

	one := 1
	store := adapter.NewStore(client)
	err := store.UpsertCourse(context.Background(),
		retrieval.CatalogEntry{
			Title:       "Intro to Testing",
			LessonCount: 1,
			Lessons:     []retrieval.LessonRef{{Number: 1, Title: "Basics"}},
		},
		[]float32{0.5},
		[]retrieval.EmbeddedChunk{
			{Chunk: text.Chunk{Content: "c1", CourseTitle: "Intro to Testing", LessonNumber: &one, ChunkIndex: 0}, Vector: []float32{0.1}},
			{Chunk: text.Chunk{Content: "c2", CourseTitle: "Intro to Testing", LessonNumber: &one, ChunkIndex: 1}, Vector: []float32{0.2}},
		})

	require.NoError(t, err)
	// One delete per class (chunks + catalog), one create per chunk + catalog entry.
	assert.Equal(t, 2, deletes)
	assert.Equal(t, 3, creates)
	assert.Equal(t, []string{"CourseChunk", "CourseChunk", "CourseCatalog"}, createdClasses)
}

func TestStore_UpsertCourse_SameIDsAcrossRuns(t *testing.T) {
	ids := map[string]int{}
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/objects":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			ids[body["id"].(string)]++
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{})
		}
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	entry := retrieval.CatalogEntry{Title: "Repeatable"}
	chunks := []retrieval.EmbeddedChunk{
		{Chunk: text.Chunk{Content: "c", CourseTitle: "Repeatable", ChunkIndex: 0}, Vector: []float32{0.1}},
	}

	require.NoError(t, store.UpsertCourse(context.Background(), entry, []float32{0.5}, chunks))
	require.NoError(t, store.UpsertCourse(context.Background(), entry, []float32{0.5}, chunks))

	// Two runs, identical ids: every id was seen exactly twice.
	for id, count := range ids {
		assert.Equal(t, 2, count, "id %s should repeat across runs", id)
	}
	assert.Len(t, ids, 2)
}

func TestStore_SearchChunks(t *testing.T) {
	var gotQuery string
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body["query"].(string)

		graphqlResponse(t, w, "CourseChunk", []map[string]interface{}{
			{
				"content":      "Intro to Testing Lesson 1 content: chunk one.",
				"courseTitle":  "Intro to Testing",
				"lessonNumber": float64(1),
				"chunkIndex":   float64(0),
				"_additional":  map[string]interface{}{"distance": 0.12},
			},
			{
				"content":     "Intro to Testing content: overview.",
				"courseTitle": "Intro to Testing",
				"_additional": map[string]interface{}{"distance": 0.3},
			},
		})
	})
	defer ts.Close()

	one := 1
	store := adapter.NewStore(client)
	results, err := store.SearchChunks(context.Background(), []float32{0.1, 0.2}, "Intro to Testing", &one, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Intro to Testing", results[0].CourseTitle)
	require.NotNil(t, results[0].LessonNumber)
	assert.Equal(t, 1, *results[0].LessonNumber)
	assert.InDelta(t, 0.12, results[0].Distance, 0.001)
	assert.Nil(t, results[1].LessonNumber)

	// Both filters must appear in the generated query.
	assert.Contains(t, gotQuery, "courseTitle")
	assert.Contains(t, gotQuery, "lessonNumber")
	assert.Contains(t, gotQuery, "nearVector")
}

func TestStore_SearchChunks_NoFilters(t *testing.T) {
	var gotQuery string
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body["query"].(string)
		graphqlResponse(t, w, "CourseChunk", nil)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	results, err := store.SearchChunks(context.Background(), []float32{0.1}, "", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotContains(t, gotQuery, "where")
}

func TestStore_BestCatalogMatch(t *testing.T) {
	t.Run("match with certainty", func(t *testing.T) {
		client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
			graphqlResponse(t, w, "CourseCatalog", []map[string]interface{}{
				{
					"title":       "Introduction to X 101",
					"link":        "https://example.com/x",
					"instructor":  "Ada",
					"lessonCount": float64(4),
					"lessonsJson": `[{"number":1,"title":"Basics","link":"https://example.com/x/1"}]`,
					"_additional": map[string]interface{}{"certainty": 0.91},
				},
			})
		})
		defer ts.Close()

		store := adapter.NewStore(client)
		match, err := store.BestCatalogMatch(context.Background(), []float32{0.1})
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "Introduction to X 101", match.Entry.Title)
		assert.InDelta(t, 0.91, match.Certainty, 0.001)
		require.Len(t, match.Entry.Lessons, 1)
		assert.Equal(t, "https://example.com/x/1", match.Entry.Lessons[0].Link)
	})

	t.Run("empty catalog returns nil", func(t *testing.T) {
		client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
			graphqlResponse(t, w, "CourseCatalog", nil)
		})
		defer ts.Close()

		store := adapter.NewStore(client)
		match, err := store.BestCatalogMatch(context.Background(), []float32{0.1})
		require.NoError(t, err)
		assert.Nil(t, match)
	})
}

func TestStore_ListCatalog(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		graphqlResponse(t, w, "CourseCatalog", []map[string]interface{}{
			{"title": "Course A", "lessonCount": float64(2)},
			{"title": "Course B", "lessonCount": float64(3)},
		})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	entries, err := store.ListCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Course A", entries[0].Title)
	assert.Equal(t, 3, entries[1].LessonCount)
}

func TestStore_GraphQLErrorSurfaced(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{{"message": "class not found"}},
		})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	_, err := store.SearchChunks(context.Background(), []float32{0.1}, "", nil, 5)
	assert.ErrorContains(t, err, "class not found")
}
