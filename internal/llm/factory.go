package llm

import (
	"github.com/Laisky/zap"

	"github.com/nocturnelabs/researchbot/internal/config"
	"github.com/nocturnelabs/researchbot/library/log"
)

// localDefaultBaseURL is where LM Studio serves its OpenAI compatible API.
const localDefaultBaseURL = "http://localhost:1234/v1"

// New returns the completion client selected by configuration. Local mode
// defaults to the LM Studio endpoint unless a base URL is supplied; remote
// mode uses the configured base URL as-is.
func New(cfg config.LLMConfig) Client {
	baseURL := cfg.BaseURL
	if cfg.UseLocal && baseURL == "" {
		baseURL = localDefaultBaseURL
	}

	log.Logger.Info("creating llm client",
		zap.Bool("local", cfg.UseLocal),
		zap.String("base_url", baseURL),
		zap.String("model", cfg.Model.Name))

	return NewOpenAICompatible(cfg.Model, cfg.APIKey, baseURL)
}
