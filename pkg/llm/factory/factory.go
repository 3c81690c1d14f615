package factory

import (
	"fmt"

	"ai-dms-be/internal/config"
	"ai-dms-be/pkg/llm"
	"ai-dms-be/pkg/llm/anthropic"
	"ai-dms-be/pkg/llm/openai"
)

// Registry maps provider names to configured providers.
type Registry struct {
	providers map[string]llm.Provider
}

var _ llm.Resolver = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{providers: map[string]llm.Provider{}}
}

func (r *Registry) Register(name string, p llm.Provider) {
	r.providers[name] = p
}

func (r *Registry) Provider(name string) (llm.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, name)
	}
	return p, nil
}

// NewLLMProviders registers every supported provider from cfg.
func NewLLMProviders(cfg config.LLMConfig) *Registry {
	r := NewRegistry()

	compatible := []struct {
		name         string
		pc           config.ProviderConfig
		includeUsage bool
	}{
		{llm.ProviderOpenAI, cfg.OpenAI, true},
		{llm.ProviderTogether, cfg.Together, true},
		{llm.ProviderDeepSeek, cfg.DeepSeek, true},
		{llm.ProviderPerplexity, cfg.Perplexity, false},
	}
	for _, c := range compatible {
		r.Register(c.name, openai.NewProvider(openai.Config{
			Name:         c.name,
			BaseURL:      c.pc.BaseURL,
			APIKey:       c.pc.APIKey,
			IncludeUsage: c.includeUsage,
			Timeout:      cfg.Timeout,
		}))
	}

	r.Register(llm.ProviderAzure, openai.NewProvider(openai.Config{
		Name:            llm.ProviderAzure,
		BaseURL:         cfg.AzureEndpoint,
		APIKey:          cfg.AzureAPIKey,
		IncludeUsage:    true,
		Azure:           true,
		AzureAPIVersion: cfg.AzureAPIVersion,
		AzureDeployment: cfg.AzureDeployment,
		Timeout:         cfg.Timeout,
	}))

	r.Register(llm.ProviderAnthropic, anthropic.NewProvider(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey, cfg.Timeout))
	return r
}
