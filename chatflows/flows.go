// Package chatflows holds the canned conversation flows served to the site
// chatbot and validates the answers captured by them.
package chatflows

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed flows.yaml
var defaultFlows []byte

var (
	ErrFlowNotFound  = errors.New("flow not found")
	ErrMissingAnswer = errors.New("missing required answer")
	ErrInvalidAnswer = errors.New("invalid answer")
)

// Capture fields map onto the lead/contact fields
var CaptureFields = []string{
	"first_name", "last_name", "email", "phone",
	"event_date", "guest_count", "venue", "package", "notes",
}

// Input types the site widget knows how to render
var InputTypes = []string{"", "text", "email", "phone", "date", "number"}

type Option struct {
	Label   string `yaml:"label" json:"label"`
	Value   string `yaml:"value,omitempty" json:"value,omitempty"`
	Capture string `yaml:"capture,omitempty" json:"capture,omitempty"`
	Next    string `yaml:"next" json:"next"`
}

type Step struct {
	ID       string   `yaml:"id" json:"id"`
	Prompt   string   `yaml:"prompt" json:"prompt"`
	Input    string   `yaml:"input,omitempty" json:"input,omitempty"`
	Capture  string   `yaml:"capture,omitempty" json:"capture,omitempty"`
	Required bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Options  []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Action   string   `yaml:"action,omitempty" json:"action,omitempty"`
	Next     string   `yaml:"next,omitempty" json:"next,omitempty"`
	End      bool     `yaml:"end,omitempty" json:"end,omitempty"`
}

type Flow struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Start       string   `yaml:"start" json:"start"`
	Steps       []Step   `yaml:"steps" json:"steps"`
}

// Summary is the list view of a flow
type Summary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
}

// Catalog is an immutable set of validated flows
type Catalog struct {
	flows []Flow
	byID  map[string]*Flow
}

// Default parses the embedded flow definitions
func Default() (*Catalog, error) {
	return Parse(defaultFlows)
}

// Parse decodes and validates YAML flow definitions
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Flows []Flow `yaml:"flows"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse flows: %w", err)
	}

	c := &Catalog{flows: doc.Flows, byID: make(map[string]*Flow, len(doc.Flows))}
	for i := range c.flows {
		f := &c.flows[i]
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate flow id %q", f.ID)
		}
		c.byID[f.ID] = f
	}
	return c, nil
}

// List returns flow summaries in definition order
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.flows))
	for _, f := range c.flows {
		out = append(out, Summary{ID: f.ID, Title: f.Title, Description: f.Description, Steps: len(f.Steps)})
	}
	return out
}

// Get returns a flow by id
func (c *Catalog) Get(id string) (*Flow, error) {
	f, ok := c.byID[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return f, nil
}

// Step returns a step by id
func (f *Flow) Step(id string) (*Step, bool) {
	for i := range f.Steps {
		if f.Steps[i].ID == id {
			return &f.Steps[i], true
		}
	}
	return nil, false
}

// Validate checks that every transition lands on a known step, every step
// is reachable from the start and at least one step ends the flow.
func (f *Flow) Validate() error {
	if f.ID == "" {
		return errors.New("flow id is required")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %s: no steps", f.ID)
	}

	ids := make(map[string]bool, len(f.Steps))
	hasEnd := false
	for _, s := range f.Steps {
		if s.ID == "" {
			return fmt.Errorf("flow %s: step without id", f.ID)
		}
		if ids[s.ID] {
			return fmt.Errorf("flow %s: duplicate step %q", f.ID, s.ID)
		}
		ids[s.ID] = true
		hasEnd = hasEnd || s.End
	}
	if !hasEnd {
		return fmt.Errorf("flow %s: no end step", f.ID)
	}
	if !ids[f.Start] {
		return fmt.Errorf("flow %s: unknown start step %q", f.ID, f.Start)
	}

	for _, s := range f.Steps {
		if !slices.Contains(InputTypes, s.Input) {
			return fmt.Errorf("flow %s step %s: unknown input %q", f.ID, s.ID, s.Input)
		}
		if s.Capture != "" && !slices.Contains(CaptureFields, s.Capture) {
			return fmt.Errorf("flow %s step %s: unknown capture field %q", f.ID, s.ID, s.Capture)
		}
		if s.End {
			continue
		}
		if s.Next == "" && len(s.Options) == 0 {
			return fmt.Errorf("flow %s step %s: dead end", f.ID, s.ID)
		}
		for _, next := range s.targets() {
			if !ids[next] {
				return fmt.Errorf("flow %s step %s: unknown next step %q", f.ID, s.ID, next)
			}
		}
		for _, o := range s.Options {
			if o.Capture != "" && !slices.Contains(CaptureFields, o.Capture) {
				return fmt.Errorf("flow %s step %s: unknown capture field %q", f.ID, s.ID, o.Capture)
			}
		}
	}

	seen := map[string]bool{f.Start: true}
	queue := []string{f.Start}
	for len(queue) > 0 {
		s, _ := f.Step(queue[0])
		queue = queue[1:]
		for _, next := range s.targets() {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, s := range f.Steps {
		if !seen[s.ID] {
			return fmt.Errorf("flow %s: step %q is unreachable", f.ID, s.ID)
		}
	}
	return nil
}

func (s *Step) targets() []string {
	var out []string
	if s.Next != "" {
		out = append(out, s.Next)
	}
	for _, o := range s.Options {
		out = append(out, o.Next)
	}
	return out
}

// Required lists the capture fields a lead must include for this flow
func (f *Flow) Required() []string {
	var out []string
	for _, s := range f.Steps {
		if s.Required && s.Capture != "" && !slices.Contains(out, s.Capture) {
			out = append(out, s.Capture)
		}
	}
	return out
}

// Answers are the values captured by a flow, keyed by capture field
type Answers map[string]string

// Check trims answers, drops unknown keys and verifies required fields and
// input formats. The cleaned answers are returned.
func (f *Flow) Check(in Answers) (Answers, error) {
	out := Answers{}
	for k, v := range in {
		v = strings.TrimSpace(v)
		if v != "" && slices.Contains(CaptureFields, k) {
			out[k] = v
		}
	}

	for _, field := range f.Required() {
		if out[field] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAnswer, field)
		}
	}

	for _, s := range f.Steps {
		v, ok := out[s.Capture]
		if s.Capture == "" || !ok {
			continue
		}
		switch s.Input {
		case "email":
			if !strings.Contains(v, "@") {
				return nil, fmt.Errorf("%w: %s", ErrInvalidAnswer, s.Capture)
			}
		case "number":
			if n, err := strconv.Atoi(v); err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %s", ErrInvalidAnswer, s.Capture)
			}
		case "date":
			if _, err := time.Parse("2006-01-02", v); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidAnswer, s.Capture)
			}
		}
	}
	return out, nil
}
