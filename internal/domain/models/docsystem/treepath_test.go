package docsystem

import (
	"reflect"
	"testing"
)

func TestChildPathAndDepth(t *testing.T) {
	tests := []struct {
		parent    string
		id        string
		wantPath  string
		wantDepth int
	}{
		{"", "a", "a", 0},
		{"a", "b", "a.b", 1},
		{"a.b", "c", "a.b.c", 2},
	}

	for _, tt := range tests {
		got := ChildPath(tt.parent, tt.id)
		if got != tt.wantPath {
			t.Errorf("ChildPath(%q, %q) = %q, want %q", tt.parent, tt.id, got, tt.wantPath)
		}
		if d := Depth(got); d != tt.wantDepth {
			t.Errorf("Depth(%q) = %d, want %d", got, d, tt.wantDepth)
		}
	}
}

func TestIsSelfOrDescendant(t *testing.T) {
	tests := []struct {
		path, ancestor string
		want           bool
	}{
		{"a", "a", true},
		{"a.b", "a", true},
		{"a.b.c", "a.b", true},
		{"ab", "a", false},
		{"ab.c", "a", false},
		{"a", "a.b", false},
		{"", "a", false},
		{"a", "", false},
	}

	for _, tt := range tests {
		if got := IsSelfOrDescendant(tt.path, tt.ancestor); got != tt.want {
			t.Errorf("IsSelfOrDescendant(%q, %q) = %v, want %v", tt.path, tt.ancestor, got, tt.want)
		}
	}
}

func TestRebase(t *testing.T) {
	tests := []struct {
		name                 string
		path, oldPfx, newPfx string
		want                 string
		wantOK               bool
	}{
		{"self to root", "a.b", "a.b", "b", "b", true},
		{"descendant", "a.b.c", "a.b", "x.b", "x.b.c", true},
		{"root under parent", "b.c", "b", "x.b", "x.b.c", true},
		{"not under", "a.c", "a.b", "x.b", "", false},
		{"segment boundary", "a.bc", "a.b", "x.b", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Rebase(tt.path, tt.oldPfx, tt.newPfx)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Rebase() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAncestorIDs(t *testing.T) {
	if got := AncestorIDs("a"); len(got) != 0 {
		t.Errorf("AncestorIDs(root) = %v, want empty", got)
	}
	if got := AncestorIDs("a.b.c"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("AncestorIDs() = %v", got)
	}
}

func TestDescendantPattern(t *testing.T) {
	if got := DescendantPattern("a.b"); got != "a.b.%" {
		t.Errorf("DescendantPattern() = %q", got)
	}
	if got := DescendantPattern(`a_%\`); got != `a\_\%\\.%` {
		t.Errorf("DescendantPattern() escaping = %q", got)
	}
}
