package server

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/matching"
)

type RecommendRequest struct {
	ResumeText            string `json:"resume_text" validate:"max=100000"`
	ResumeFileBase64      string `json:"resume_file_base64" validate:"omitempty,base64"`
	DesiredJobDescription string `json:"desired_job_description" validate:"max=5000"`
	CompanyJobsURL        string `json:"company_jobs_url" validate:"required,max=2048"`
}

type RecommendResponse struct {
	Results []matching.MatchResult `json:"results"`
}

type RecommendHandler struct {
	Recommender Recommender
	Extractor   ProfileExtractor
	Validate    *validator.Validate
	Logger      *zap.Logger
}

func (h *RecommendHandler) Register(g *echo.Group) {
	g.POST("/recommend", h.recommend)
}

func (h *RecommendHandler) recommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return newAPIError(http.StatusBadRequest, "ValidationError", "request body is not valid JSON")
	}

	resumeText := strings.TrimSpace(req.ResumeText)
	if resumeText == "" && strings.TrimSpace(req.ResumeFileBase64) == "" {
		return newAPIError(http.StatusBadRequest, "MissingResume",
			"Either resume_text or resume_file_base64 must be provided")
	}

	if err := h.Validate.Struct(req); err != nil {
		return newAPIError(http.StatusBadRequest, "ValidationError", validationMessage(err))
	}

	if resumeText == "" {
		return newAPIError(http.StatusBadRequest, "UnsupportedResumeFormat",
			"Resume files are not supported, send resume_text instead")
	}

	// reject the board before spending a model call on the resume
	if err := h.Recommender.Validate(req.CompanyJobsURL); err != nil {
		return err
	}

	ctx := c.Request().Context()
	profile, err := h.Extractor.ExtractProfile(ctx, resumeText)
	if err != nil {
		h.Logger.Warn("profile extraction failed", zap.Error(err))
		return newAPIError(http.StatusBadGateway, "ExtractionFailed", "Could not read the resume. Please try again.")
	}

	results, err := h.Recommender.Recommend(ctx, profile, req.DesiredJobDescription, req.CompanyJobsURL)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RecommendResponse{Results: results})
}

func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fieldName(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

var jsonFieldNames = map[string]string{
	"ResumeText":            "resume_text",
	"ResumeFileBase64":      "resume_file_base64",
	"DesiredJobDescription": "desired_job_description",
	"CompanyJobsURL":        "company_jobs_url",
}

func fieldName(field string) string {
	if name, ok := jsonFieldNames[field]; ok {
		return name
	}
	return field
}
