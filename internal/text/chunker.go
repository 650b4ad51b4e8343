package text

import (
	"fmt"
	"regexp"
	"strings"
)

// Chunk is the unit of indexed text. LessonNumber is nil for the
// course-level overview chunk. ChunkIndex is the position within the
// originating lesson and feeds deterministic index entry ids.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

var sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]*\s+`)

// SplitSentences splits text on sentence-ending punctuation followed by
// whitespace. Text with no such boundary comes back as a single sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		// Cut after the punctuation, before the trailing whitespace.
		end := loc[1]
		for end > loc[0] && (text[end-1] == ' ' || text[end-1] == '\n' || text[end-1] == '\t' || text[end-1] == '\r') {
			end--
		}
		s := strings.TrimSpace(text[last:end])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if last < len(text) {
		s := strings.TrimSpace(text[last:])
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ChunkText greedily packs sentences into chunks of at most maxChars,
// re-including trailing sentences that fit within overlap chars so
// consecutive chunks share context at their boundary. A single sentence
// longer than maxChars is emitted whole rather than dropped.
func ChunkText(text string, maxChars, overlap int) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences that fit in the
		// overlap window, newest last.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			l := len(current[i])
			if carryLen > 0 {
				l++ // joining space
			}
			if carryLen+l > overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += l
		}
		current = carry
		currentLen = carryLen
	}

	for _, s := range sentences {
		add := len(s)
		if currentLen > 0 {
			add++
		}
		if currentLen+add > maxChars && currentLen > 0 {
			flush()
			// Re-check: the carried overlap plus this sentence may still
			// not fit; drop the carry rather than exceed the bound.
			add = len(s)
			if currentLen > 0 {
				add++
			}
			if currentLen+add > maxChars {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, s)
		if currentLen > 0 {
			currentLen++
		}
		currentLen += len(s)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// ChunkCourse turns a parsed course into context-prefixed chunks: one
// sequence per lesson plus a single course-level overview chunk. Prefixes
// keep retrieval results self-describing even without adjacent chunks.
func ChunkCourse(course *Course, maxChars, overlap int) []Chunk {
	var chunks []Chunk

	for _, lesson := range course.Lessons {
		lesson := lesson
		prefix := fmt.Sprintf("%s Lesson %d content: ", course.Title, lesson.Number)
		for i, piece := range ChunkText(lesson.Content, maxChars, overlap) {
			chunks = append(chunks, Chunk{
				Content:      prefix + piece,
				CourseTitle:  course.Title,
				LessonNumber: &lesson.Number,
				ChunkIndex:   i,
			})
		}
	}

	chunks = append(chunks, overviewChunk(course))
	return chunks
}

// overviewChunk summarizes the course itself so course-scope questions can
// match without a lesson filter. It carries no lesson number.
func overviewChunk(course *Course) Chunk {
	var b strings.Builder
	fmt.Fprintf(&b, "%s course material", course.Title)
	if course.Instructor != "" {
		fmt.Fprintf(&b, " taught by %s", course.Instructor)
	}
	b.WriteString(".")
	if len(course.Lessons) > 0 {
		b.WriteString(" Lessons:")
		for _, l := range course.Lessons {
			fmt.Fprintf(&b, " Lesson %d: %s.", l.Number, l.Title)
		}
	}
	return Chunk{
		Content:     fmt.Sprintf("%s content: %s", course.Title, b.String()),
		CourseTitle: course.Title,
		ChunkIndex:  0,
	}
}
