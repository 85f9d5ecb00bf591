package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Extraction task names, also used as metric labels and stored on extraction runs
const (
	TaskResources   = "resources"
	TaskAssignments = "assignments"
	TaskRoster      = "roster"
	TaskNameMatch   = "name_match"
)

// Extractor turns free text into structured course content
type Extractor interface {
	ExtractResources(ctx context.Context, text string) ([]ExtractedResource, error)
	ExtractAssignments(ctx context.Context, text string, year int) ([]ExtractedAssignment, error)
	ExtractRoster(ctx context.Context, text string) ([]ExtractedStudent, error)
	MatchNames(ctx context.Context, names []string, candidates []NameCandidate) ([]NameMatch, error)
	Model() string
}

type ExtractedResource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
}

type ExtractedAssignment struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     string  `json:"due_date"`
	MaxGrade    float64 `json:"max_grade"`
}

type ExtractedStudent struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type NameCandidate struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type NameMatch struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) ExtractResources(ctx context.Context, text string) ([]ExtractedResource, error) {
	var out struct {
		Resources *[]ExtractedResource `json:"resources"`
	}
	if err := c.CompleteJSON(ctx, TaskResources, ResourcesPrompt, text, &out); err != nil {
		return nil, err
	}
	if out.Resources == nil {
		return nil, fmt.Errorf("%w: missing \"resources\"", ErrInvalidJSON)
	}
	return *out.Resources, nil
}

func (c *Client) ExtractAssignments(ctx context.Context, text string, year int) ([]ExtractedAssignment, error) {
	var out struct {
		Assignments *[]ExtractedAssignment `json:"assignments"`
	}
	input := fmt.Sprintf("Año de referencia: %d\n\n%s", year, text)
	if err := c.CompleteJSON(ctx, TaskAssignments, AssignmentsPrompt, input, &out); err != nil {
		return nil, err
	}
	if out.Assignments == nil {
		return nil, fmt.Errorf("%w: missing \"assignments\"", ErrInvalidJSON)
	}
	for i := range *out.Assignments {
		if (*out.Assignments)[i].MaxGrade <= 0 {
			(*out.Assignments)[i].MaxGrade = 10
		}
	}
	return *out.Assignments, nil
}

func (c *Client) ExtractRoster(ctx context.Context, text string) ([]ExtractedStudent, error) {
	var out struct {
		Students *[]ExtractedStudent `json:"students"`
	}
	if err := c.CompleteJSON(ctx, TaskRoster, RosterPrompt, text, &out); err != nil {
		return nil, err
	}
	if out.Students == nil {
		return nil, fmt.Errorf("%w: missing \"students\"", ErrInvalidJSON)
	}
	students := *out.Students
	for i := range students {
		students[i].Email = strings.ToLower(strings.TrimSpace(students[i].Email))
	}
	return students, nil
}

// MatchNames drops any email the model returns that is not one of the candidates
func (c *Client) MatchNames(ctx context.Context, names []string, candidates []NameCandidate) ([]NameMatch, error) {
	input, err := json.Marshal(map[string]any{"names": names, "candidates": candidates})
	if err != nil {
		return nil, fmt.Errorf("failed to encode name match input: %w", err)
	}

	var out struct {
		Matches *[]NameMatch `json:"matches"`
	}
	if err := c.CompleteJSON(ctx, TaskNameMatch, NameMatchPrompt, string(input), &out); err != nil {
		return nil, err
	}
	if out.Matches == nil {
		return nil, fmt.Errorf("%w: missing \"matches\"", ErrInvalidJSON)
	}

	known := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		known[strings.ToLower(cand.Email)] = true
	}
	matches := *out.Matches
	for i := range matches {
		matches[i].Email = strings.ToLower(strings.TrimSpace(matches[i].Email))
		if !known[matches[i].Email] {
			matches[i].Email = ""
			matches[i].Confidence = 0
		}
	}
	return matches, nil
}
