package factory

import (
	"fmt"
	"os"
	"strings"

	"ai-livecourse-be/pkg/llm"
	"ai-livecourse-be/pkg/llm/huggingface"
	"ai-livecourse-be/pkg/llm/ollama"
)

// NewLLMProvider builds the configured backend. providerType matches the
// LLM_PROVIDER env value; huggingface additionally reads HF_API_KEY.
func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch strings.ToLower(providerType) {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(os.Getenv("HF_API_KEY"), baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
