package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/SAP-F-2025/classroom-service/internal/llm"
	"github.com/SAP-F-2025/classroom-service/internal/models"
)

type fakeExtractor struct {
	err        error
	year       int
	candidates []llm.NameCandidate
}

func (f *fakeExtractor) ExtractResources(ctx context.Context, text string) ([]llm.ExtractedResource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []llm.ExtractedResource{{Title: "Guía", URL: "https://guide.test", Kind: "link"}}, nil
}

func (f *fakeExtractor) ExtractAssignments(ctx context.Context, text string, year int) ([]llm.ExtractedAssignment, error) {
	f.year = year
	if f.err != nil {
		return nil, f.err
	}
	return []llm.ExtractedAssignment{{Title: "TP1", DueDate: fmt.Sprintf("%d-04-10", year), MaxGrade: 10}}, nil
}

func (f *fakeExtractor) ExtractRoster(ctx context.Context, text string) ([]llm.ExtractedStudent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []llm.ExtractedStudent{
		{FullName: "Ana", Email: " Ana@School.edu ", Role: "alumno"},
		{FullName: "Luis", Email: "luis@school.edu", Role: "profesor"},
		{FullName: "Eve", Email: "eve@school.edu", Role: "director"},
	}, nil
}

func (f *fakeExtractor) MatchNames(ctx context.Context, names []string, candidates []llm.NameCandidate) ([]llm.NameMatch, error) {
	f.candidates = candidates
	if f.err != nil {
		return nil, f.err
	}
	matches := make([]llm.NameMatch, 0, len(names))
	for _, n := range names {
		matches = append(matches, llm.NameMatch{Name: n, Email: candidates[0].Email, Confidence: 0.9})
	}
	return matches, nil
}

func (f *fakeExtractor) Model() string { return "fake-model" }

func newExtractionFixture(t *testing.T, extractor llm.Extractor) (*testEnv, *models.Course, ExtractionService) {
	t.Helper()
	env := newTestEnv(t)
	if extractor != nil {
		env.deps.Extractor = extractor
	}
	inst := env.institution(t, "Alfa")
	course := env.course(t, inst.ID, "Física")
	env.enroll(t, course.ID, "teacher@school.edu", "docente")
	env.enroll(t, course.ID, "kid@school.edu", "estudiante")
	return env, course, NewExtractionService(env.deps)
}

func TestExtractionService_RecordsRuns(t *testing.T) {
	fake := &fakeExtractor{}
	env, course, svc := newExtractionFixture(t, fake)
	ctx := context.Background()
	teacher := who("teacher@school.edu")

	res, err := svc.ExtractResources(ctx, teacher, course.ID, &ExtractTextRequest{Text: "ver https://guide.test"})
	if err != nil {
		t.Fatalf("ExtractResources() error = %v", err)
	}
	if res.RunID == "" || len(res.Resources) != 1 {
		t.Errorf("ExtractResources() = %+v", res)
	}

	var run models.ExtractionRun
	if err := env.db.First(&run, "id = ?", res.RunID).Error; err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if run.Kind != models.ExtractResources || run.Model != "fake-model" || run.RequestedBy != "teacher@school.edu" {
		t.Errorf("run = %+v", run)
	}
	var stored []llm.ExtractedResource
	if err := json.Unmarshal(run.Result, &stored); err != nil || len(stored) != 1 {
		t.Errorf("stored result = %s (%v)", run.Result, err)
	}

	if _, err := svc.ExtractAssignments(ctx, teacher, course.ID, &ExtractAssignmentsRequest{Text: "TP1 para el 10/4", Year: 2027}); err != nil {
		t.Fatalf("ExtractAssignments() error = %v", err)
	}
	if fake.year != 2027 {
		t.Errorf("year = %d, want 2027", fake.year)
	}

	runs, err := svc.ListRuns(ctx, teacher, course.ID)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}

func TestExtractionService_RosterNormalization(t *testing.T) {
	_, course, svc := newExtractionFixture(t, &fakeExtractor{})

	res, err := svc.ExtractRoster(context.Background(), who("teacher@school.edu"), course.ID, &ExtractTextRequest{Text: "lista"})
	if err != nil {
		t.Fatalf("ExtractRoster() error = %v", err)
	}
	want := []struct{ email, role string }{
		{"ana@school.edu", "estudiante"},
		{"luis@school.edu", "docente"},
		{"eve@school.edu", "estudiante"},
	}
	for i, w := range want {
		if res.Students[i].Email != w.email || res.Students[i].Role != w.role {
			t.Errorf("student %d = %+v, want %s/%s", i, res.Students[i], w.email, w.role)
		}
	}
}

func TestExtractionService_MatchNamesUsesEnrollments(t *testing.T) {
	fake := &fakeExtractor{}
	_, course, svc := newExtractionFixture(t, fake)

	res, err := svc.MatchNames(context.Background(), who("teacher@school.edu"), course.ID, &MatchNamesRequest{Names: []string{" Kid "}})
	if err != nil {
		t.Fatalf("MatchNames() error = %v", err)
	}
	if len(fake.candidates) != 2 {
		t.Errorf("candidates = %+v", fake.candidates)
	}
	if len(res.Matches) != 1 || res.Matches[0].Name != "Kid" {
		t.Errorf("matches = %+v", res.Matches)
	}
}

func TestExtractionService_Failures(t *testing.T) {
	tests := []struct {
		name      string
		extractor llm.Extractor
		caller    string
		check     func(error) bool
	}{
		{name: "not configured", caller: "teacher@school.edu", check: IsUpstream},
		{name: "invalid model output", extractor: &fakeExtractor{err: llm.ErrInvalidJSON}, caller: "teacher@school.edu", check: IsUpstream},
		{name: "provider error", extractor: &fakeExtractor{err: &llm.APIError{StatusCode: 429, Message: "rate limited"}}, caller: "teacher@school.edu", check: IsUpstream},
		{name: "timeout", extractor: &fakeExtractor{err: context.DeadlineExceeded}, caller: "teacher@school.edu", check: IsUpstream},
		{name: "student", extractor: &fakeExtractor{}, caller: "kid@school.edu", check: IsPermissionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, course, svc := newExtractionFixture(t, tt.extractor)
			_, err := svc.ExtractResources(context.Background(), who(tt.caller), course.ID, &ExtractTextRequest{Text: "algo"})
			if !tt.check(err) {
				t.Fatalf("ExtractResources() error = %v", err)
			}
			if n := env.count(t, &models.ExtractionRun{}, "1 = 1"); n != 0 {
				t.Errorf("failed extraction stored %d runs", n)
			}
		})
	}
}
