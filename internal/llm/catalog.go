package llm

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/felixgeelhaar/concierge/internal/domain"
)

// CustomProviderID is the provider whose endpoint is supplied by the user.
const CustomProviderID = "custom"

// Provider describes one upstream LLM vendor
type Provider struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	EndpointURL  string   `json:"endpointUrl"`
	DefaultModel string   `json:"defaultModel"`
	Models       []string `json:"models,omitempty"`
	DocsURL      string   `json:"docsUrl,omitempty"`
}

// IsCustom reports whether the endpoint must come from user configuration.
func (p Provider) IsCustom() bool {
	return p.ID == CustomProviderID
}

// Catalog holds the known provider descriptors
type Catalog struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		providers: make(map[string]Provider),
	}
}

// DefaultCatalog returns a catalog with the built-in providers
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, p := range builtinProviders() {
		c.Register(p)
	}
	return c
}

// Register adds or replaces a provider
func (c *Catalog) Register(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.providers[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.providers[p.ID] = p
}

// Lookup retrieves a provider by id
func (c *Catalog) Lookup(id string) (Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.providers[id]
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id)
	}
	return p, nil
}

// List returns all providers in registration order
func (c *Catalog) List() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Provider, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.providers[id])
	}
	return out
}

// BuildEndpoint returns the URL a chat request for providerID is sent to.
// Every provider has a fixed endpoint except "custom", which uses userURL.
func (c *Catalog) BuildEndpoint(providerID, userURL string) (string, error) {
	p, err := c.Lookup(providerID)
	if err != nil {
		return "", err
	}
	if !p.IsCustom() {
		return p.EndpointURL, nil
	}
	if err := ValidateURL(userURL); err != nil {
		return "", err
	}
	return userURL, nil
}

// ValidateConfig performs the checks a settings surface runs before saving a
// configuration. The API key is not required here: dispatch enforces it on
// the resolved configuration, since it may be inherited.
func (c *Catalog) ValidateConfig(cfg domain.LLMConfig) error {
	if cfg.Provider != nil && *cfg.Provider != "" {
		if _, err := c.Lookup(*cfg.Provider); err != nil {
			return err
		}
	}
	if cfg.APIURL != nil && *cfg.APIURL != "" {
		if err := ValidateURL(*cfg.APIURL); err != nil {
			return err
		}
	}
	if cfg.Temperature != nil {
		if t := *cfg.Temperature; t < 0 || t > 2 {
			return fmt.Errorf("%w: temperature %.2f outside [0, 2]", domain.ErrValidation, t)
		}
	}
	return nil
}

// ValidateURL checks that raw is a non-empty absolute http(s) URL
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: endpoint url is required", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: endpoint url: %v", domain.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: endpoint url must use http or https", domain.ErrValidation)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: endpoint url has no host", domain.ErrValidation)
	}
	return nil
}

func builtinProviders() []Provider {
	return []Provider{
		{
			ID:           "deepseek",
			Name:         "DeepSeek Chat",
			EndpointURL:  "https://api.deepseek.com/chat/completions",
			DefaultModel: "deepseek-chat",
			Models:       []string{"deepseek-R1", "DeepSeek-V3"},
			DocsURL:      "https://api-docs.deepseek.com/zh-cn/",
		},
		{
			ID:           "openai",
			Name:         "ChatGPT (OpenAI)",
			EndpointURL:  "https://api.openai.com/v1/chat/completions",
			DefaultModel: "gpt-4",
			DocsURL:      "https://platform.openai.com/docs/",
		},
		{
			ID:           "yuanbao",
			Name:         "YuanBao",
			EndpointURL:  "https://yuanbao.api.com/chat",
			DefaultModel: "yuanbao-model",
			DocsURL:      "https://yuanbao.com/docs",
		},
		{
			ID:           "kimi",
			Name:         "Kimi AI",
			EndpointURL:  "https://kimi.ai/api/chat",
			DefaultModel: "kimi-model",
			DocsURL:      "https://platform.moonshot.cn/docs/guide/start-using-kimi-api",
		},
		{
			ID:           "doubao",
			Name:         "DouBao",
			EndpointURL:  "https://doubao.com/api/chat",
			DefaultModel: "doubao-model",
			DocsURL:      "https://doubao.com/docs",
		},
		{
			ID:           "guiji",
			Name:         "Guiji",
			EndpointURL:  "https://guiji.com/api/chat",
			DefaultModel: "guiji-model",
			DocsURL:      "https://guiji.com/docs",
		},
		{
			ID:           "baidu",
			Name:         "ERNIE Bot (Baidu)",
			EndpointURL:  "https://aip.baidubce.com/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/completions",
			DefaultModel: "ernie-bot",
			DocsURL:      "https://cloud.baidu.com/doc/WENXINWORKSHOP/s/Ilkkrb0i5",
		},
		{
			ID:           "aliyun",
			Name:         "Tongyi Qianwen (Alibaba Cloud)",
			EndpointURL:  "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
			DefaultModel: "tongyi-qianwen",
			DocsURL:      "https://help.aliyun.com/document_detail/258586.html",
		},
		{
			ID:           "zhipu",
			Name:         "Zhipu AI",
			EndpointURL:  "https://open.bigmodel.cn/api/paas/v3/model-api",
			DefaultModel: "glm-4",
			DocsURL:      "https://open.bigmodel.cn/dev/api",
		},
		{
			ID:   CustomProviderID,
			Name: "Custom API",
		},
	}
}
