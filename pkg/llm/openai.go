package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider implements Provider over the OpenAI chat completions API.
type OpenAIProvider struct {
	client oai.Client
}

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

// NewOpenAIProvider creates the OpenAI provider. The API key comes from the
// OPENAI_API_KEY environment variable, resolved by the caller.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key must not be empty (set OPENAI_API_KEY)")
	}

	cfg := &openAIConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAIProvider{client: oai.NewClient(reqOpts...)}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apierr *oai.Error
		if errors.As(err, &apierr) {
			return Response{}, &ProviderError{
				Provider:   ProviderOpenAI,
				StatusCode: apierr.StatusCode,
				Body:       apierr.RawJSON(),
				Err:        err,
			}
		}
		return Response{}, &ProviderError{Provider: ProviderOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Response{}, &ProviderError{
			Provider: ProviderOpenAI,
			Err:      fmt.Errorf("empty choices in response"),
		}
	}

	out := Response{
		Text: resp.Choices[0].Message.Content,
		Raw:  json.RawMessage(resp.RawJSON()),
	}
	out.Usage.Prompt = int(resp.Usage.PromptTokens)
	out.Usage.Completion = int(resp.Usage.CompletionTokens)
	out.Usage.Total = int(resp.Usage.TotalTokens)
	return out, nil
}

// buildParams converts a Request into OpenAI SDK params.
func (p *OpenAIProvider) buildParams(req Request) oai.ChatCompletionNewParams {
	var messages []oai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, oai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model.Name),
		Messages: messages,
	}
	if req.Model.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Model.Temperature)
	}
	if req.Model.TopP != nil {
		params.TopP = param.NewOpt(*req.Model.TopP)
	}
	if req.Model.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.Model.MaxOutputTokens))
	}
	if req.ResponseFormat == ResponseFormatJSON || req.Model.JSONMode {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}
