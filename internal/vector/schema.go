package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

const (
	ClassCourseChunk   = "CourseChunk"
	ClassCourseCatalog = "CourseCatalog"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema checks if the required classes exist and creates them if not.
// Vectors are supplied by the application, never by a Weaviate vectorizer.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	chunkProps := []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "courseTitle", DataType: []string{"string"}}, // exact match filter
		{Name: "lessonNumber", DataType: []string{"int"}},
		{Name: "chunkIndex", DataType: []string{"int"}},
	}
	catalogProps := []*models.Property{
		{Name: "title", DataType: []string{"string"}},
		{Name: "link", DataType: []string{"string"}},
		{Name: "instructor", DataType: []string{"text"}},
		{Name: "lessonCount", DataType: []string{"int"}},
		{Name: "lessonsJson", DataType: []string{"text"}}, // lesson titles/links, JSON-encoded
	}

	classes := []*models.Class{
		{
			Class:       ClassCourseChunk,
			Description: "A context-prefixed chunk of course material",
			Vectorizer:  "none",
			Properties:  chunkProps,
		},
		{
			Class:       ClassCourseCatalog,
			Description: "One entry per ingested course, vectorized by title",
			Vectorizer:  "none",
			Properties:  catalogProps,
		},
	}

	for _, class := range classes {
		if err := ensureClass(ctx, client, class); err != nil {
			return err
		}
	}
	return nil
}

func ensureClass(ctx context.Context, client SchemaClient, class *models.Class) error {
	exists, err := client.ClassExists(ctx, class.Class)
	if err != nil {
		return err
	}
	if !exists {
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	existing, err := client.GetClass(ctx, class.Class)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range existing.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range class.Properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, class.Class, p); err != nil {
				return err
			}
		}
	}
	return nil
}
