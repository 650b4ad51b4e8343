package text

import (
	"regexp"
	"strconv"
	"strings"
)

// Course is a parsed source document: header metadata plus ordered lessons.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson numbers are unique within a course but not necessarily contiguous.
type Lesson struct {
	Number  int
	Title   string
	Link    string
	Content string
}

var (
	courseTitleRe      = regexp.MustCompile(`(?i)^course title:\s*(.+)$`)
	courseLinkRe       = regexp.MustCompile(`(?i)^course link:\s*(.+)$`)
	courseInstructorRe = regexp.MustCompile(`(?i)^course instructor:\s*(.+)$`)
	lessonHeaderRe     = regexp.MustCompile(`(?i)^lesson\s+(\d+):\s*(.+)$`)
	lessonLinkRe       = regexp.MustCompile(`(?i)^lesson link:\s*(.+)$`)
)

// ParseCourseDocument parses raw course material text. The expected layout is
// a header block (Course Title / Course Link / Course Instructor lines)
// followed by "Lesson N: <title>" sections, each optionally starting with a
// "Lesson Link:" line. A document without the header convention is not
// rejected: the whole body becomes a single unlabeled lesson and the course
// title falls back to fallbackTitle.
func ParseCourseDocument(raw, fallbackTitle string) *Course {
	lines := strings.Split(raw, "\n")

	course := &Course{Title: fallbackTitle}
	bodyStart := 0

	// Header lines may appear in any order within the leading block.
	for i := 0; i < len(lines) && i < 4; i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case courseTitleRe.MatchString(line):
			course.Title = strings.TrimSpace(courseTitleRe.FindStringSubmatch(line)[1])
			bodyStart = i + 1
		case courseLinkRe.MatchString(line):
			course.Link = strings.TrimSpace(courseLinkRe.FindStringSubmatch(line)[1])
			bodyStart = i + 1
		case courseInstructorRe.MatchString(line):
			course.Instructor = strings.TrimSpace(courseInstructorRe.FindStringSubmatch(line)[1])
			bodyStart = i + 1
		case line == "":
			continue
		}
	}

	var (
		current     *Lesson
		contentBuf  []string
		sawLessons  bool
		flushLesson = func() {
			if current == nil {
				return
			}
			current.Content = strings.TrimSpace(strings.Join(contentBuf, "\n"))
			course.Lessons = append(course.Lessons, *current)
			current = nil
			contentBuf = nil
		}
	)

	for i := bodyStart; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flushLesson()
			num, _ := strconv.Atoi(m[1])
			current = &Lesson{Number: num, Title: strings.TrimSpace(m[2])}
			sawLessons = true
			continue
		}

		if current != nil && len(contentBuf) == 0 && lessonLinkRe.MatchString(trimmed) {
			current.Link = strings.TrimSpace(lessonLinkRe.FindStringSubmatch(trimmed)[1])
			continue
		}

		// Content only accumulates inside a lesson. Preamble between the
		// header block and the first lesson marker belongs to no lesson and
		// is dropped on the structured path; the fallback below still keeps
		// the whole body when no lesson markers exist at all.
		if current != nil {
			contentBuf = append(contentBuf, line)
		}
	}
	flushLesson()

	if !sawLessons {
		// No lesson markers at all: treat the whole body as one unlabeled lesson.
		body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
		course.Lessons = []Lesson{{Number: 0, Title: course.Title, Content: body}}
	}

	return course
}
