package ai

import (
	"context"
	"encoding/json"

	"teamfit-platform/pkg/config"
	"teamfit-platform/pkg/errutil"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ai",
	fx.Provide(NewOpenAIClient),
)

type openAIClient struct {
	api *openai.Client
	cfg *config.Config
}

type ClientParams struct {
	fx.In
	Config *config.Config
}

func NewOpenAIClient(p ClientParams) Client {
	return &openAIClient{
		api: openai.NewClient(p.Config.OpenAI.APIKey),
		cfg: p.Config,
	}
}

func (c *openAIClient) Customize(ctx context.Context, source SourceActivity, team TeamContext, durationMinutes int, paidTier bool) (*GeneratedContent, error) {
	model := c.cfg.OpenAI.FreeTierModel
	if paidTier {
		model = c.cfg.OpenAI.PaidTierModel
	}

	prompt := buildCustomizationPrompt(source, team, durationMinutes)

	return c.complete(ctx, model, "You are an expert team-building facilitator.", prompt, c.cfg.OpenAI.MaxTokensPublicCustomization)
}

func (c *openAIClient) GenerateVariant(ctx context.Context, team TeamContext, materialsText, requirements string, seq int, priorTitles []string) (*GeneratedContent, error) {
	model := c.cfg.OpenAI.PaidTierModel
	prompt := buildGenerationPrompt(team, materialsText, requirements, seq, priorTitles)

	return c.complete(ctx, model, "You are an expert team-building activity designer.", prompt, c.cfg.OpenAI.MaxTokensCustomGeneration)
}

func (c *openAIClient) complete(ctx context.Context, model, system, prompt string, maxTokens int) (*GeneratedContent, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		zap.L().Error("openai completion failed", zap.String("model", model), zap.Error(err))
		return nil, errutil.GenerationFailed("model completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errutil.GenerationFailed("model returned no choices", nil)
	}

	var content GeneratedContent
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &content); err != nil {
		zap.L().Error("openai returned unparseable output", zap.String("model", model), zap.Error(err))
		return nil, errutil.GenerationFailed("model returned unparseable output", err)
	}

	content.TokensUsed = resp.Usage.TotalTokens
	content.ModelUsed = model

	if err := content.Validate(); err != nil {
		return nil, err
	}

	return &content, nil
}
