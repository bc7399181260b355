package aitest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/docsage-ai/docsage/pkg/ai"
)

// Double is a deterministic ai.CapabilityClient for tests. Responses are
// registered per structured-output name or matched in completion order;
// embeddings are derived from the input so identical texts embed
// identically.
type Double struct {
	mu sync.Mutex

	// Completions are returned in order for GenerateCompletion calls.
	Completions []string
	completionN int

	// Structured maps a format name to the JSON payload unmarshaled
	// into out for GenerateCompletionWithFormat calls.
	Structured map[string]string

	// Descriptions are returned in order for GenerateImageDescription calls.
	Descriptions []string
	descriptionN int

	// Describe, when set, answers GenerateImageDescription from the
	// prompt instead of the ordered list. Needed when callers fan out
	// vision calls concurrently and order is not deterministic.
	Describe func(prompt string) string

	// Err, when set, is returned by every call.
	Err error

	// EmbedDim is the dimension of generated embeddings (default 8).
	EmbedDim int

	// Calls records every invocation for assertions.
	Calls []string
}

// NewDouble returns an empty Double ready for configuration.
func NewDouble() *Double {
	return &Double{
		Structured: make(map[string]string),
	}
}

func (d *Double) record(call string) {
	d.Calls = append(d.Calls, call)
}

// GenerateCompletion returns the next canned completion.
func (d *Double) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("completion")

	if d.Err != nil {
		return "", d.Err
	}
	if d.completionN >= len(d.Completions) {
		return "", fmt.Errorf("aitest: no completion registered for call %d", d.completionN+1)
	}
	res := d.Completions[d.completionN]
	d.completionN++
	return res, nil
}

// GenerateCompletionWithFormat unmarshals the canned payload registered
// under name into out.
func (d *Double) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("structured:" + name)

	if d.Err != nil {
		return d.Err
	}
	payload, ok := d.Structured[name]
	if !ok {
		return fmt.Errorf("aitest: no structured response registered for %q", name)
	}
	return json.Unmarshal([]byte(payload), out)
}

// GenerateEmbedding returns a deterministic vector derived from the input
// bytes, so equal inputs produce equal embeddings.
func (d *Double) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("embedding")

	if d.Err != nil {
		return nil, d.Err
	}
	dim := d.EmbedDim
	if dim <= 0 {
		dim = 8
	}

	vec := make([]float32, dim)
	var acc uint32 = 2166136261
	for i, b := range input {
		acc = (acc ^ uint32(b)) * 16777619
		vec[i%dim] += float32(acc%1000) / 1000.0
	}
	return vec, nil
}

// GenerateImageDescription returns the next canned description.
func (d *Double) GenerateImageDescription(ctx context.Context, prompt string, image ai.ImagePayload) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("vision")

	if d.Err != nil {
		return "", d.Err
	}
	if d.Describe != nil {
		return d.Describe(prompt), nil
	}
	if d.descriptionN >= len(d.Descriptions) {
		return "", fmt.Errorf("aitest: no description registered for call %d", d.descriptionN+1)
	}
	res := d.Descriptions[d.descriptionN]
	d.descriptionN++
	return res, nil
}

// ResetMetrics implements ai.CapabilityClient.
func (d *Double) ResetMetrics() {}

// GetMetrics implements ai.CapabilityClient.
func (d *Double) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }
