package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/docsage-ai/docsage/pkg/common"
)

type countingLoader struct {
	calls int
	units []TextUnit
	err   error
}

func (c *countingLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]TextUnit, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.units, nil
}

func TestCachedLoadParsesOnce(t *testing.T) {
	inner := &countingLoader{units: []TextUnit{{Text: "hello", Page: 1}}}
	cached := NewCached(inner)
	doc := common.Document{FileID: "f1", SourceName: "a.txt"}

	for i := 0; i < 3; i++ {
		units, err := cached.Load(context.Background(), doc, []byte("hello"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(units) != 1 || units[0].Text != "hello" {
			t.Fatalf("units = %+v", units)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner loader called %d times, want 1", inner.calls)
	}
}

func TestCachedErrorNotCached(t *testing.T) {
	inner := &countingLoader{err: errors.New("bad bytes")}
	cached := NewCached(inner)
	doc := common.Document{FileID: "f1"}

	for i := 0; i < 2; i++ {
		if _, err := cached.Load(context.Background(), doc, nil); err == nil {
			t.Fatal("Load should fail")
		}
	}
	if inner.calls != 2 {
		t.Errorf("failures must not be cached, inner called %d times", inner.calls)
	}
}

func TestRegistryInvalidateDropsCachedUnits(t *testing.T) {
	inner := &countingLoader{units: []TextUnit{{Text: "v1"}}}
	registry := Registry{common.CategoryText: NewCached(inner)}
	doc := common.Document{FileID: "f1", Category: common.CategoryText}

	ld, ok := registry.For(common.CategoryText)
	if !ok {
		t.Fatal("loader not registered")
	}
	if _, err := ld.Load(context.Background(), doc, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := ld.Load(context.Background(), doc, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cached second load, inner called %d times", inner.calls)
	}

	registry.Invalidate("f1")
	if _, err := ld.Load(context.Background(), doc, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("invalidated file must be reparsed, inner called %d times", inner.calls)
	}
}
