package evaluation

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ImportDocument is the YAML shape accepted by the evaluation importer.
//
//	name: Annual review 2026
//	startDate: 2026-01-01
//	endDate: 2026-03-31
//	open: true
//	topics:
//	  - name: Teaching
//	    weight: 1
//	    indicators:
//	      - name: Lesson plans
//	        type: SCALE_1_4
//	        weight: 10
//	        requireEvidence: true
type ImportDocument struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	StartDate   string        `yaml:"startDate"`
	EndDate     string        `yaml:"endDate"`
	Open        bool          `yaml:"open"`
	Topics      []ImportTopic `yaml:"topics"`
}

type ImportTopic struct {
	Name       string            `yaml:"name"`
	Weight     float64           `yaml:"weight"`
	Indicators []ImportIndicator `yaml:"indicators"`
}

type ImportIndicator struct {
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	Type            string  `yaml:"type"`
	Weight          float64 `yaml:"weight"`
	RequireEvidence bool    `yaml:"requireEvidence"`
}

type TopicTree struct {
	Topic      TopicInput
	Indicators []IndicatorInput
}

// ImportError pinpoints the offending element of an import document.
type ImportError struct {
	Path string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func ParseImport(r io.Reader) (ImportDocument, error) {
	var doc ImportDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return ImportDocument{}, fmt.Errorf("decode import: %w", err)
	}
	return doc, nil
}

// Inputs validates the document and converts it to create inputs.
func (d ImportDocument) Inputs() (CreateInput, []TopicTree, error) {
	start, err := ParseDateBound(d.StartDate, false)
	if err != nil {
		return CreateInput{}, nil, &ImportError{Path: "startDate", Err: err}
	}
	end, err := ParseDateBound(d.EndDate, true)
	if err != nil {
		return CreateInput{}, nil, &ImportError{Path: "endDate", Err: err}
	}
	create := CreateInput{
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		StartDate:   start,
		EndDate:     end,
		Open:        d.Open,
	}
	if err := ValidateCreate(create); err != nil {
		return CreateInput{}, nil, &ImportError{Path: "evaluation", Err: err}
	}

	trees := make([]TopicTree, 0, len(d.Topics))
	for i, t := range d.Topics {
		topic := TopicInput{Name: strings.TrimSpace(t.Name), Weight: t.Weight}
		if topic.Weight == 0 {
			topic.Weight = DefaultTopicWeight
		}
		if err := ValidateTopic(topic); err != nil {
			return CreateInput{}, nil, &ImportError{Path: fmt.Sprintf("topics[%d]", i), Err: err}
		}
		tree := TopicTree{Topic: topic}
		for j, ind := range t.Indicators {
			in := IndicatorInput{
				Name:            strings.TrimSpace(ind.Name),
				Description:     strings.TrimSpace(ind.Description),
				Type:            strings.ToUpper(strings.TrimSpace(ind.Type)),
				Weight:          ind.Weight,
				RequireEvidence: ind.RequireEvidence,
			}
			if err := ValidateIndicator(in); err != nil {
				return CreateInput{}, nil, &ImportError{Path: fmt.Sprintf("topics[%d].indicators[%d]", i, j), Err: err}
			}
			tree.Indicators = append(tree.Indicators, in)
		}
		trees = append(trees, tree)
	}
	return create, trees, nil
}

// ParseDateBound accepts RFC3339 or YYYY-MM-DD. A bare end date covers the
// whole day.
func ParseDateBound(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Millisecond)
	}
	return parsed, nil
}
