package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/ats"
	"github.com/spigell/jobfit/internal/matching"
	"github.com/spigell/jobfit/internal/utils"
)

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

var (
	//go:embed prompts/extract.md
	extractTemplate string
	//go:embed prompts/profile.md
	profileInstructions string
	//go:embed prompts/requirements.md
	requirementsInstructions string
	//go:embed schemas/profile.json
	profileSchemaJSON string
	//go:embed schemas/requirements.json
	requirementsSchemaJSON string
)

const defaultMaxLogLength = 200

// target describes one structured extraction: what to ask and which shape to expect.
type target struct {
	name         string
	instructions string
	schemaJSON   string
	schema       *gojsonschema.Schema
}

func newTarget(name, instructions, schemaJSON string) target {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded %s schema: %v", name, err))
	}
	return target{name: name, instructions: instructions, schemaJSON: schemaJSON, schema: schema}
}

var (
	profileTarget      = newTarget("profile", profileInstructions, profileSchemaJSON)
	requirementsTarget = newTarget("requirements", requirementsInstructions, requirementsSchemaJSON)
)

// Extractor implements ai.Extractor on top of a Gemini JSON generator.
type Extractor struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Extractor = (*Extractor)(nil)

func NewExtractor(generator jsonGenerator, maxLogLength int, logger *zap.Logger) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) ExtractProfile(ctx context.Context, resumeText string) (matching.ResumeProfile, error) {
	var profile matching.ResumeProfile
	if strings.TrimSpace(resumeText) == "" {
		return profile, errors.New("resume text is empty")
	}

	if err := e.extract(ctx, profileTarget, resumeText, &profile, zap.String("target", "profile")); err != nil {
		return profile, err
	}

	e.logger.Info("extracted resume profile",
		zap.Int("skills", len(profile.Skills)),
		zap.Int("experience", len(profile.Experience)),
	)
	return profile, nil
}

func (e *Extractor) ExtractRequirements(ctx context.Context, posting ats.Posting) (matching.JobRequirements, error) {
	var req matching.JobRequirements

	content := fmt.Sprintf("Job Title: %s\n\nJob Description:\n%s", posting.Title, posting.Description)
	if err := e.extract(ctx, requirementsTarget, content, &req, zap.String("posting_id", posting.ID)); err != nil {
		return matching.DefaultRequirements(), err
	}

	req.RoleFamily = matching.ParseRoleFamily(string(req.RoleFamily))

	e.logger.Debug("extracted requirements",
		zap.String("posting_id", posting.ID),
		zap.Int("must_have", len(req.MustHave)),
		zap.String("role_family", string(req.RoleFamily)),
	)
	return req, nil
}

func (e *Extractor) extract(ctx context.Context, t target, content string, out any, fields ...zap.Field) error {
	prompt := buildPrompt(t, content)

	e.logger.Debug("gemini generate content request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(content, e.maxLogLen)),
	)...)

	raw, err := e.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return err
	}

	e.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)...)

	return decodeResponse(t, raw, out)
}

func buildPrompt(t target, content string) string {
	prompt := strings.ReplaceAll(extractTemplate, "{{INSTRUCTIONS}}", strings.TrimSpace(t.instructions))
	prompt = strings.ReplaceAll(prompt, "{{SCHEMA}}", strings.TrimSpace(t.schemaJSON))
	// content goes last so placeholders inside it are left alone
	return strings.ReplaceAll(prompt, "{{CONTENT}}", content)
}

// decodeResponse validates raw model output against the target schema and
// decodes it into out.
func decodeResponse(t target, raw string, out any) error {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return &ai.InvalidResponseError{Target: t.name, Raw: raw, Cause: err}
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return &ai.InvalidResponseError{Target: t.name, Raw: raw, Cause: err}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return &ai.InvalidResponseError{Target: t.name, Raw: raw, Cause: errors.New(strings.Join(problems, "; "))}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(data); err != nil {
		return &ai.InvalidResponseError{Target: t.name, Raw: raw, Cause: err}
	}

	return nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
