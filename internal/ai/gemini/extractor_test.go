package gemini

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/matching"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractRequirements(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: "```json\n" + `{
		"must_have": ["python", "sql"],
		"nice_to_have": ["aws"],
		"responsibilities": ["build dashboards"],
		"role_family": "Data",
		"keywords": ["etl"]
	}` + "\n```"}
	extractor := NewExtractor(stub, 0, zap.NewNop())

	req, err := extractor.ExtractRequirements(context.Background(), ats.Posting{ID: "7", Title: "Data Analyst", Description: "We need SQL."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expect := matching.JobRequirements{
		MustHave:         []string{"python", "sql"},
		NiceToHave:       []string{"aws"},
		Responsibilities: []string{"build dashboards"},
		RoleFamily:       matching.RoleData,
		Keywords:         []string{"etl"},
	}
	if !reflect.DeepEqual(req, expect) {
		t.Fatalf("expected %+v, got %+v", expect, req)
	}

	if !strings.Contains(stub.lastPrompt, "Job Title: Data Analyst\n\nJob Description:\nWe need SQL.") {
		t.Fatalf("expected posting content in prompt, got %q", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, `"title": "JobRequirements"`) {
		t.Fatalf("expected schema in prompt")
	}
	if strings.Contains(stub.lastPrompt, "{{") {
		t.Fatalf("unexpected placeholder left in prompt: %q", stub.lastPrompt)
	}
}

func TestExtractRequirementsNormalizesRoleFamily(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"must_have": ["go"], "role_family": "astronautics"}`}
	req, err := NewExtractor(stub, 0, nil).ExtractRequirements(context.Background(), ats.Posting{Description: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RoleFamily != matching.RoleOther {
		t.Fatalf("expected other, got %q", req.RoleFamily)
	}
	if req.NiceToHave != nil {
		t.Fatalf("expected missing lists to stay empty, got %v", req.NiceToHave)
	}
}

func TestExtractRequirementsInvalidResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I cannot help with that"},
		{name: "wrong shape", response: `{"must_have": "python"}`},
		{name: "wrong item type", response: `{"keywords": [1, 2]}`},
		{name: "array root", response: `["python"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubGenerator{response: tt.response}
			req, err := NewExtractor(stub, 0, nil).ExtractRequirements(context.Background(), ats.Posting{ID: "1", Description: "x"})
			if !errors.Is(err, ai.ErrInvalidResponse) {
				t.Fatalf("expected invalid response error, got %v", err)
			}
			var invalid *ai.InvalidResponseError
			if !errors.As(err, &invalid) || invalid.Target != "requirements" || invalid.Raw != tt.response {
				t.Fatalf("unexpected error details: %+v", invalid)
			}
			if req.RoleFamily != matching.RoleOther {
				t.Fatalf("expected default requirements on failure, got %+v", req)
			}
		})
	}
}

func TestExtractProfile(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"skills": ["go", "sql"], "experience": ["built billing"], "education": null, "keywords": ["fintech"]}`}
	profile, err := NewExtractor(stub, 10, nil).ExtractProfile(context.Background(), "Go developer with SQL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(profile.Skills, []string{"go", "sql"}) || profile.Education != nil {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if !strings.Contains(stub.lastPrompt, "You are a resume parser.") {
		t.Fatalf("expected profile instructions in prompt")
	}

	if _, err := NewExtractor(stub, 10, nil).ExtractProfile(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty resume")
	}

	failing := &stubGenerator{err: errors.New("boom")}
	if _, err := NewExtractor(failing, 10, nil).ExtractProfile(context.Background(), "text"); err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for input, expect := range tests {
		if got := extractJSON(input); got != expect {
			t.Fatalf("extractJSON(%q): expected %q, got %q", input, expect, got)
		}
	}
}
