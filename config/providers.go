package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mindfusion/backend/services/providers"
	"github.com/mindfusion/backend/utils"
)

// providersFile is the on-disk shape of PROVIDERS_FILE
type providersFile struct {
	Providers []providers.Spec `yaml:"providers"`
}

// DefaultProviderSpecs returns the built-in provider table. Order is the
// aggregation priority order.
func DefaultProviderSpecs() []providers.Spec {
	return []providers.Spec{
		{
			ID:          "chatgpt",
			Label:       "ChatGPT",
			Kind:        providers.KindOpenAI,
			Endpoint:    "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			TrustWeight: 85,
			MaxTokens:   500,
		},
		{
			ID:          "claude",
			Label:       "Claude",
			Kind:        providers.KindAnthropic,
			Endpoint:    "https://api.anthropic.com",
			Model:       "claude-3-5-sonnet-20241022",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			TrustWeight: 88,
			MaxTokens:   500,
		},
		{
			ID:          "gemini",
			Label:       "Gemini",
			Kind:        providers.KindGemini,
			Endpoint:    "https://generativelanguage.googleapis.com/v1beta",
			Model:       "gemini-pro",
			APIKeyEnv:   "GOOGLE_API_KEY",
			TrustWeight: 90,
			MaxTokens:   500,
		},
	}
}

// LoadProviderSpecs reads a provider table from a YAML file
func LoadProviderSpecs(path string) ([]providers.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	return ParseProviderSpecs(data)
}

// ParseProviderSpecs decodes a YAML provider table
func ParseProviderSpecs(data []byte) ([]providers.Spec, error) {
	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}
	if len(file.Providers) == 0 {
		return nil, fmt.Errorf("providers file lists no providers")
	}
	return file.Providers, nil
}

// ValidateProviderSpecs checks every spec and rejects duplicate IDs
func ValidateProviderSpecs(specs []providers.Spec) error {
	seen := make(map[string]bool, len(specs))
	for i := range specs {
		if err := utils.ValidateStruct(&specs[i]); err != nil {
			if fields := utils.GetValidationFields(err); len(fields) > 0 {
				return fmt.Errorf("provider %d (%q): %v", i, specs[i].ID, fields)
			}
			return fmt.Errorf("provider %d (%q): %w", i, specs[i].ID, err)
		}
		if seen[specs[i].ID] {
			return fmt.Errorf("duplicate provider id %q", specs[i].ID)
		}
		seen[specs[i].ID] = true
	}
	return nil
}

// resolveProviderEnv fills in credentials and applies PREFIX_BASE_URL and
// PREFIX_MODEL overrides, where PREFIX is api_key_env without "_API_KEY"
func resolveProviderEnv(specs []providers.Spec) []providers.Spec {
	out := make([]providers.Spec, len(specs))
	for i, s := range specs {
		if s.APIKeyEnv != "" {
			s.APIKey = os.Getenv(s.APIKeyEnv)
			if prefix, ok := strings.CutSuffix(s.APIKeyEnv, "_API_KEY"); ok && prefix != "" {
				s.Endpoint = getEnv(prefix+"_BASE_URL", s.Endpoint)
				s.Model = getEnv(prefix+"_MODEL", s.Model)
			}
		}
		out[i] = s
	}
	return out
}
