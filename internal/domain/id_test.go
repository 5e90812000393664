package domain

import (
	"sort"
	"testing"
	"time"
)

func TestNewIDSortsInCreationOrder(t *testing.T) {
	now := time.Now()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NewID(now)
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatal("ids minted in the same millisecond are not sorted")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if len(id) != 26 {
			t.Errorf("len(%q) = %d, want 26", id, len(id))
		}
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
