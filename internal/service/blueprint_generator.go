package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/khangtgr/assessly/config"
	"github.com/khangtgr/assessly/internal/dto"
)

// BlueprintGeneratorService drafts a test blueprint from a role description.
// The draft is returned as a create request so it flows through the same
// validation path as a hand-authored blueprint.
type BlueprintGeneratorService interface {
	GenerateBlueprint(req dto.GenerateBlueprintRequest) (*dto.CreateBlueprintRequest, error)
}

type geminiBlueprintGenerator struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewBlueprintGeneratorService(cfg *config.Config) (BlueprintGeneratorService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Blueprint generation will be unavailable.")
		return &geminiBlueprintGenerator{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	model.ResponseMIMEType = "application/json"
	return &geminiBlueprintGenerator{client: model, cfg: cfg}, nil
}

func (s *geminiBlueprintGenerator) GenerateBlueprint(req dto.GenerateBlueprintRequest) (*dto.CreateBlueprintRequest, error) {
	if s.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = 45
	}

	prompt := buildGenerationPrompt(req, duration)
	resp, err := s.client.GenerateContent(context.Background(), genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Str("role", req.Role).Msg("Gemini API error during blueprint generation")
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no content")
	}

	raw := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			raw += string(txt)
		}
	}
	raw = stripCodeFence(raw)

	var draft dto.CreateBlueprintRequest
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("failed to parse generated blueprint")
		return nil, fmt.Errorf("could not parse generated blueprint: %w", err)
	}
	if draft.DurationMinutes == 0 {
		draft.DurationMinutes = duration
	}
	return &draft, nil
}

func buildGenerationPrompt(req dto.GenerateBlueprintRequest, duration int) string {
	var b strings.Builder
	b.WriteString("You are an assessment designer for a technical recruiting platform.\n")
	b.WriteString(fmt.Sprintf("Design a %d-minute screening test blueprint for the role: %s.\n", duration, req.Role))
	if req.Seniority != "" {
		b.WriteString(fmt.Sprintf("Target seniority: %s.\n", req.Seniority))
	}
	if len(req.Competencies) > 0 {
		b.WriteString(fmt.Sprintf("Cover these competencies: %s.\n", strings.Join(req.Competencies, ", ")))
	}
	b.WriteString(`
Respond with ONLY a JSON object of this exact shape:
{
  "title": string,
  "duration_minutes": number,
  "sections": [
    {
      "type": "skills" | "aptitude" | "work_style",
      "title": string,
      "time_minutes": number,
      "weight": number,
      "items": [
        {
          "format": "mcq" | "multi_select" | "true_false" | "sjt_rank" | "likert",
          "stem": string,
          "options": [string],
          "correct_answer": <format-dependent key>,
          "competencies": [string],
          "difficulty": "E" | "M" | "H",
          "max_points": number
        }
      ]
    }
  ],
  "weights": {"skills": number, "aptitude": number, "work_style": number},
  "cut_scores": {"overall": number}
}

Rules:
- Section weights must sum to 100. The top-level weights must sum to 1.0 and cover exactly the section types present.
- mcq keys are one option string; multi_select keys are an array of option strings; true_false keys are "True" or "False"; sjt_rank keys are a permutation of the options; likert options are "1".."5" and the key is a number 1-5.
- work_style items may omit correct_answer.
- Mix difficulties and keep stems concrete and role-relevant.
`)
	return b.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
