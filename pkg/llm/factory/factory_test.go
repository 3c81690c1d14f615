package factory

import (
	"testing"

	"ai-dms-be/internal/config"
	"ai-dms-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProviders(t *testing.T) {
	r := NewLLMProviders(config.LLMConfig{})

	for _, name := range []string{
		llm.ProviderOpenAI, llm.ProviderAzure, llm.ProviderAnthropic,
		llm.ProviderTogether, llm.ProviderDeepSeek, llm.ProviderPerplexity,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := r.Provider(name)
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}

	_, err := r.Provider("ollama")
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
}
