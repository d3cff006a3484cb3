package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Store is an abstract realtime key-value store with hierarchical paths,
// modeled on a hosted realtime database: writes are last-write-wins per
// path, deletes are writes of null, and subscribers receive the entire
// subtree snapshot on every change, eventually and in arrival order per
// subscription. There are no transactions; merge-by-convention happens at
// the application layer (read, patch, write back).
type Store interface {
	// Read returns the JSON value at path: the leaf value for a leaf
	// path, an object of children for a collection path, or nil when
	// nothing exists there.
	Read(ctx context.Context, path string) (json.RawMessage, error)
	// Write replaces the value at path wholesale.
	Write(ctx context.Context, path string, value any) error
	// Delete removes path and everything under it.
	Delete(ctx context.Context, path string) error
	// Subscribe streams subtree snapshots for path, starting with the
	// current state. The returned cancel func stops delivery and closes
	// the channel. Slow consumers may have intermediate snapshots
	// dropped; the latest one is always delivered eventually.
	Subscribe(ctx context.Context, path string) (<-chan json.RawMessage, func(), error)
}

// related reports whether a change at changed is visible to a
// subscription rooted at sub (either contains the other).
func related(sub, changed string) bool {
	if sub == "" || changed == sub {
		return true
	}
	return strings.HasPrefix(changed, sub+"/") || strings.HasPrefix(sub, changed+"/")
}

// assemble builds the JSON subtree for root from flat leaf entries.
// Returns nil when no leaf lives at or under root.
func assemble(root string, leaves map[string]json.RawMessage) json.RawMessage {
	if v, ok := leaves[root]; ok {
		return v
	}

	prefix := root + "/"
	if root == "" {
		prefix = ""
	}

	children := make(map[string]map[string]json.RawMessage)
	for path, v := range leaves {
		if root != "" && !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		name, _, _ := strings.Cut(rest, "/")
		if children[name] == nil {
			children[name] = make(map[string]json.RawMessage)
		}
		children[name][path] = v
	}
	if len(children) == 0 {
		return nil
	}

	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		childRoot := name
		if root != "" {
			childRoot = root + "/" + name
		}
		buf.Write(assemble(childRoot, children[name]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// isNull reports whether raw JSON encodes null (a delete by convention).
func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
