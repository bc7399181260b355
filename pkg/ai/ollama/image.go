package ollama

import (
	"context"
	"encoding/base64"

	"github.com/docsage-ai/docsage/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateImageDescription sends a vision chat request with a base64 image
// and returns the model's textual response.
func (c *Client) GenerateImageDescription(
	ctx context.Context,
	prompt string,
	image ai.ImagePayload,
) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(image.Base64)
	if err != nil {
		return "", err
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.visionModel,
		Messages: []api.Message{
			{Role: "system", Content: prompt},
			{
				Role:   "user",
				Images: []api.ImageData{raw},
			},
		},
		Stream: &stream,
	}

	final, err := c.chat(ctx, req)
	if err != nil {
		return "", err
	}
	return final.Message.Content, nil
}
