package answercache

import (
	"context"
	"strings"
	"testing"

	"github.com/docsage-ai/docsage/pkg/common"
)

func TestKeyNormalization(t *testing.T) {
	scope := common.Scope{Level: common.ScopeFolder, OwnerID: "owner-1", FolderID: "folder-2"}

	a := Key(scope, "What is the Q3 revenue?")
	b := Key(scope, "  what IS the q3   revenue?  ")
	if a != b {
		t.Errorf("casing/spacing variants should share a key:\n%s\n%s", a, b)
	}
}

func TestKeyScopesDisjoint(t *testing.T) {
	query := "what changed"
	keys := map[string]string{
		"drive":  Key(common.Scope{Level: common.ScopeDrive, OwnerID: "o1"}, query),
		"folder": Key(common.Scope{Level: common.ScopeFolder, OwnerID: "o1", FolderID: "f1"}, query),
		"file":   Key(common.Scope{Level: common.ScopeFile, OwnerID: "o1", FileID: "file-1"}, query),
		"other":  Key(common.Scope{Level: common.ScopeDrive, OwnerID: "o2"}, query),
	}

	seen := make(map[string]string)
	for name, key := range keys {
		if prev, dup := seen[key]; dup {
			t.Errorf("scopes %s and %s collide on key %s", prev, name, key)
		}
		seen[key] = name
	}
}

func TestKeyContainsFileID(t *testing.T) {
	key := Key(common.Scope{Level: common.ScopeFile, OwnerID: "o1", FileID: "file-42"}, "summary")
	if !strings.Contains(key, "file-42") {
		t.Errorf("file key must reference the file for invalidation: %s", key)
	}
}

func TestNilCacheIsMiss(t *testing.T) {
	var c *Cache
	if _, hit := c.Get(context.Background(), "answer|drive|o1|||q"); hit {
		t.Error("nil cache must miss")
	}
	if err := c.Set(context.Background(), "k", Entry{Answer: "a"}); err != nil {
		t.Errorf("nil cache Set should be a no-op: %v", err)
	}
	if err := c.InvalidateFile(context.Background(), "file-1"); err != nil {
		t.Errorf("nil cache invalidation should be a no-op: %v", err)
	}
}
