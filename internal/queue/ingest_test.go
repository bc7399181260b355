package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"
)

type fakeBlobs struct {
	data []byte
	err  error
}

func (f *fakeBlobs) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error { return nil }

type fakeStatus struct {
	states []status.State
	errs   []string
}

func (f *fakeStatus) Record(ctx context.Context, doc common.Document, state status.State, entities, relations int, errMsg string) error {
	f.states = append(f.states, state)
	f.errs = append(f.errs, errMsg)
	return nil
}

func (f *fakeStatus) Delete(ctx context.Context, fileID string) error { return nil }

// scriptedLoader returns its queued results in order, repeating the
// last one once the script is exhausted.
type scriptedLoader struct {
	calls int
	units [][]loader.TextUnit
	errs  []error
}

func (s *scriptedLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]loader.TextUnit, error) {
	i := s.calls
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	s.calls++
	return s.units[i], s.errs[i]
}

func ingestBody(t *testing.T, doc common.Document) []byte {
	t.Helper()
	body, err := json.Marshal(IngestMsg{Document: doc, ObjectKey: "o1/d1/f1/notes.txt"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestProcessIngestUnsupportedAcks(t *testing.T) {
	st := &fakeStatus{}
	p := &Pipeline{Status: st}

	body := ingestBody(t, common.Document{
		FileID: "f1", OwnerID: "o1", SourceName: "archive.xyz",
	})
	if err := p.ProcessIngest(context.Background(), body); err != nil {
		t.Fatalf("unsupported files must be acked, got %v", err)
	}
	if len(st.states) != 0 {
		t.Errorf("no status row for a skipped type, got %v", st.states)
	}
}

func TestProcessIngestParseFailureRecordsAndAcks(t *testing.T) {
	st := &fakeStatus{}
	ld := &scriptedLoader{units: [][]loader.TextUnit{nil}, errs: []error{errors.New("truncated stream")}}
	p := &Pipeline{
		Blobs:   &fakeBlobs{data: []byte("x")},
		Loaders: loader.Registry{common.CategoryText: ld},
		Status:  st,
	}

	body := ingestBody(t, common.Document{
		FileID: "f1", OwnerID: "o1", SourceName: "notes.txt", Category: common.CategoryText,
	})
	if err := p.ProcessIngest(context.Background(), body); err != nil {
		t.Fatalf("parse failures must not be retried, got %v", err)
	}
	want := []status.State{status.StateProcessing, status.StateFailed}
	if len(st.states) != 2 || st.states[0] != want[0] || st.states[1] != want[1] {
		t.Errorf("states = %v, want %v", st.states, want)
	}
	if st.errs[1] == "" {
		t.Error("failure row must carry the parse error")
	}
}

func TestProcessIngestTransientBlobFailureRetries(t *testing.T) {
	st := &fakeStatus{}
	p := &Pipeline{
		Blobs:   &fakeBlobs{err: errors.New("connection reset")},
		Loaders: loader.Registry{},
		Status:  st,
	}

	body := ingestBody(t, common.Document{
		FileID: "f1", OwnerID: "o1", SourceName: "notes.txt", Category: common.CategoryText,
	})
	if err := p.ProcessIngest(context.Background(), body); err == nil {
		t.Fatal("a transient store failure must surface so the queue retries")
	}
	if len(st.states) != 2 || st.states[1] != status.StateFailed {
		t.Errorf("states = %v", st.states)
	}
}

func TestProcessIngestReingestBypassesLoaderCache(t *testing.T) {
	ld := &scriptedLoader{
		units: [][]loader.TextUnit{{{Text: "v1"}}, nil},
		errs:  []error{nil, errors.New("replaced with garbage")},
	}
	cached := loader.NewCached(ld)
	doc := common.Document{
		FileID: "f1", OwnerID: "o1", SourceName: "notes.txt", Category: common.CategoryText,
	}

	// warm the per-file cache with the first upload's content
	if _, err := cached.Load(context.Background(), doc, []byte("v1")); err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := &Pipeline{
		Blobs:   &fakeBlobs{data: []byte("v2")},
		Loaders: loader.Registry{common.CategoryText: cached},
		Status:  &fakeStatus{},
	}
	if err := p.ProcessIngest(context.Background(), ingestBody(t, doc)); err != nil {
		t.Fatalf("ProcessIngest: %v", err)
	}
	if ld.calls != 2 {
		t.Errorf("re-ingest must reparse the blob, loader called %d times", ld.calls)
	}
}
