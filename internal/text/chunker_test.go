package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	t.Run("basic punctuation", func(t *testing.T) {
		got := SplitSentences("One. Two! Three? Four.")
		assert.Equal(t, []string{"One.", "Two!", "Three?", "Four."}, got)
	})

	t.Run("no boundary", func(t *testing.T) {
		got := SplitSentences("no punctuation at all just words")
		assert.Equal(t, []string{"no punctuation at all just words"}, got)
	})

	t.Run("quoted sentence end", func(t *testing.T) {
		got := SplitSentences(`He said "done." Then left.`)
		require.Len(t, got, 2)
		assert.Equal(t, `He said "done."`, got[0])
		assert.Equal(t, "Then left.", got[1])
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, SplitSentences("   "))
	})
}

func TestChunkText(t *testing.T) {
	t.Run("fits in one chunk", func(t *testing.T) {
		chunks := ChunkText("Short one. Short two.", 100, 20)
		assert.Equal(t, []string{"Short one. Short two."}, chunks)
	})

	t.Run("splits with overlap", func(t *testing.T) {
		// Each sentence is 10 chars; max 25 fits two sentences per chunk.
		text := "aaaaaaaaa. bbbbbbbbb. ccccccccc. ddddddddd."
		chunks := ChunkText(text, 25, 12)
		require.True(t, len(chunks) >= 2)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 25)
		}
		// Overlap: the second chunk starts with the first chunk's last sentence.
		first := strings.Fields(chunks[0])
		assert.True(t, strings.HasPrefix(chunks[1], first[len(first)-1]))
	})

	t.Run("no overlap configured", func(t *testing.T) {
		text := "aaaaaaaaa. bbbbbbbbb. ccccccccc."
		chunks := ChunkText(text, 21, 0)
		assert.Equal(t, []string{"aaaaaaaaa. bbbbbbbbb.", "ccccccccc."}, chunks)
	})

	t.Run("oversized single sentence kept whole", func(t *testing.T) {
		long := strings.Repeat("word ", 100)
		chunks := ChunkText(long, 50, 10)
		require.Len(t, chunks, 1)
		assert.Greater(t, len(chunks[0]), 50)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Nil(t, ChunkText("", 100, 10))
	})
}

func TestChunkCourse(t *testing.T) {
	course := ParseCourseDocument(sampleDoc, "fallback")
	chunks := ChunkCourse(course, 800, 100)

	// Three lessons, each short enough for one chunk, plus the overview.
	require.Len(t, chunks, 4)

	first := chunks[0]
	assert.Equal(t, "Introduction to Testing 101", first.CourseTitle)
	require.NotNil(t, first.LessonNumber)
	assert.Equal(t, 0, *first.LessonNumber)
	assert.Equal(t, 0, first.ChunkIndex)
	assert.True(t, strings.HasPrefix(first.Content, "Introduction to Testing 101 Lesson 0 content: "))

	overview := chunks[len(chunks)-1]
	assert.Nil(t, overview.LessonNumber)
	assert.Contains(t, overview.Content, "taught by Ada Lovelace")
	assert.Contains(t, overview.Content, "Lesson 3: Advanced Topics")
}

func TestChunkCourse_LongLessonSplits(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This sentence pads the lesson with enough repeated content to split. ")
	}
	course := &Course{
		Title:   "Intro to Testing",
		Lessons: []Lesson{{Number: 1, Title: "Basics", Content: b.String()}},
	}

	chunks := ChunkCourse(course, 800, 100)

	var lessonChunks []Chunk
	for _, c := range chunks {
		if c.LessonNumber != nil {
			lessonChunks = append(lessonChunks, c)
		}
	}
	require.GreaterOrEqual(t, len(lessonChunks), 2)
	for i, c := range lessonChunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.True(t, strings.HasPrefix(c.Content, "Intro to Testing Lesson 1 content: "))
	}
}
