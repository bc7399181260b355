package openai

import (
	"sync"

	"github.com/docsage-ai/docsage/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// Client implements ai.CapabilityClient against OpenAI-compatible APIs.
// Separate underlying clients are kept for chat, embedding and vision
// endpoints so each can point at a different host.
type Client struct {
	completionModel string
	extractionModel string
	embeddingModel  string
	visionModel     string

	timeoutMin int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	embeddingLock *semaphore.Weighted
	visionLock    *semaphore.Weighted

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
	VisionClient    *openai.Client
}

// NewClientParams defines the configuration for creating a Client.
// Empty URLs fall back to the public OpenAI endpoint; empty keys disable
// the corresponding sub-client.
type NewClientParams struct {
	CompletionModel string
	ExtractionModel string
	EmbeddingModel  string
	VisionModel     string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string
	VisionURL    string
	VisionKey    string

	TimeoutMin     int
	ParallelEmbeds int
	ParallelVision int
}

// NewClient creates a capability client backed by OpenAI-compatible APIs.
func NewClient(params NewClientParams) *Client {
	timeout := params.TimeoutMin
	if timeout <= 0 {
		timeout = 5
	}
	parallelEmbeds := params.ParallelEmbeds
	if parallelEmbeds <= 0 {
		parallelEmbeds = 8
	}
	parallelVision := params.ParallelVision
	if parallelVision <= 0 {
		parallelVision = 4
	}

	return &Client{
		completionModel: params.CompletionModel,
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,
		visionModel:     params.VisionModel,

		timeoutMin: timeout,

		embeddingLock: semaphore.NewWeighted(int64(parallelEmbeds)),
		visionLock:    semaphore.NewWeighted(int64(parallelVision)),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
		VisionClient:    newOpenaiClient(params.VisionURL, params.VisionKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *Client) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics zeroes the accumulated usage metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns a snapshot of the accumulated usage metrics.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
