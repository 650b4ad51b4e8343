package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lectern/internal/retrieval"
)

type OutlineIndex interface {
	GetOutline(ctx context.Context, name string) (*retrieval.CatalogEntry, error)
}

// OutlineTool returns a course's full outline: title, link, instructor, and
// every lesson with its number and title.
type OutlineTool struct {
	index OutlineIndex
}

func NewOutlineTool(index OutlineIndex) *OutlineTool {
	return &OutlineTool{index: index}
}

func (t *OutlineTool) Schema() Schema {
	return Schema{
		Name:        "get_course_outline",
		Description: "Get the complete outline of a course including title, course link, and all lessons with their numbers and titles",
		Params: []Param{
			{Name: "course_name", Type: "string", Description: "Course title or partial course name", Required: true},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	name, ok := stringArg(args, "course_name")
	if !ok {
		return Result{Text: "A course name is required."}, nil
	}

	outline, err := t.index.GetOutline(ctx, name)
	if errors.Is(err, retrieval.ErrCourseNotFound) {
		return Result{Text: fmt.Sprintf("No course found matching '%s'. Please check the course name or try a partial match.", name)}, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "course outline lookup failed", "course_name", name, "error", err)
		return Result{Text: "Course outlines are currently unavailable."}, nil
	}

	var lines []string
	lines = append(lines, "Course: "+outline.Title)
	if outline.Instructor != "" {
		lines = append(lines, "Instructor: "+outline.Instructor)
	}
	if outline.Link != "" {
		lines = append(lines, "Course Link: "+outline.Link)
	}
	lines = append(lines, "")

	if len(outline.Lessons) > 0 {
		lines = append(lines, "Lessons:")
		for _, l := range outline.Lessons {
			line := fmt.Sprintf("Lesson %d: %s", l.Number, l.Title)
			if l.Link != "" {
				line += fmt.Sprintf(" (%s)", l.Link)
			}
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, "No lesson information available.")
	}

	return Result{
		Text:    strings.Join(lines, "\n"),
		Sources: []Source{{Text: outline.Title, Link: outline.Link}},
	}, nil
}
