package survey

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the immutable, versioned set of survey templates.
type Catalog struct {
	Version   int
	templates map[domain.SurveyType]*domain.SurveyTemplate
}

type catalogFile struct {
	Version   int                     `yaml:"version"`
	Templates []domain.SurveyTemplate `yaml:"templates"`
}

// DefaultCatalog parses the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// ParseCatalog decodes and checks a YAML catalog definition.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("catalog v%d has no templates", file.Version)
	}

	c := &Catalog{
		Version:   file.Version,
		templates: make(map[domain.SurveyType]*domain.SurveyTemplate, len(file.Templates)),
	}
	for i := range file.Templates {
		tmpl := file.Templates[i]
		if err := checkTemplate(&tmpl); err != nil {
			return nil, err
		}
		if _, dup := c.templates[tmpl.Type]; dup {
			return nil, fmt.Errorf("catalog: duplicate template %q", tmpl.Type)
		}
		c.templates[tmpl.Type] = &tmpl
	}
	return c, nil
}

func checkTemplate(t *domain.SurveyTemplate) error {
	if t.Type == "" {
		return fmt.Errorf("catalog: template without type")
	}
	if len(t.Questions) == 0 {
		return fmt.Errorf("catalog: template %q has no questions", t.Type)
	}

	seen := make(map[string]bool, len(t.Questions))
	for _, q := range t.Questions {
		if q.Key == "" {
			return fmt.Errorf("catalog: template %q has a question without key", t.Type)
		}
		if seen[q.Key] {
			return fmt.Errorf("catalog: template %q repeats key %q", t.Type, q.Key)
		}
		seen[q.Key] = true

		switch q.Kind {
		case domain.KindBinary:
		case domain.KindScale:
			if q.Min > q.Max {
				return fmt.Errorf("catalog: %s.%s has min %d > max %d", t.Type, q.Key, q.Min, q.Max)
			}
		default:
			return fmt.Errorf("catalog: %s.%s has unknown kind %q", t.Type, q.Key, q.Kind)
		}
	}
	return nil
}

// Template returns the template for a survey type.
func (c *Catalog) Template(t domain.SurveyType) (*domain.SurveyTemplate, error) {
	tmpl, ok := c.templates[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSurvey, t)
	}
	return tmpl, nil
}

// Types lists the known survey types in alphabetical order.
func (c *Catalog) Types() []domain.SurveyType {
	out := make([]domain.SurveyType, 0, len(c.templates))
	for t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
