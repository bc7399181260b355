package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/docsage-ai/docsage/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateImageDescription sends a vision request with a base64-encoded
// image and returns the model's textual response to the prompt.
func (c *Client) GenerateImageDescription(
	ctx context.Context,
	prompt string,
	image ai.ImagePayload,
) (string, error) {
	client := c.VisionClient
	if client == nil {
		client = c.ChatClient
	}
	if client == nil {
		return "", fmt.Errorf("vision client not configured")
	}

	url := fmt.Sprintf("%s%s", image.MimeType, image.Base64)
	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: url,
				}),
			}),
		},
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.visionLock.Acquire(rCtx, 1); err != nil {
		return "", err
	}
	defer c.visionLock.Release(1)

	start := time.Now()
	response, err := client.Chat.Completions.New(rCtx, body)
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	return response.Choices[0].Message.Content, nil
}
