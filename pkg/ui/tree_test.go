package ui

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/supplyviz/pkg/interact"
	"github.com/vanderheijden86/supplyviz/pkg/testutil"
)

func chairSession(t *testing.T) *interact.Session {
	t.Helper()
	s, err := interact.NewSession(testutil.MustBuild(t, testutil.Chair()), interact.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func ids(tm *TreeModel) []string {
	out := make([]string, len(tm.flatList))
	for i, n := range tm.flatList {
		out[i] = n.Data.ID
	}
	return out
}

func TestBuildFollowsBOM(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.SetExpandAll(true)
	tm.Build(chairSession(t))

	want := []string{
		"chair",
		"maker-Shop-chair",
		"leg", "supplier-Mill-leg",
		"missing-seat",
		"back", "maker-Shop-back",
		"slat", "supplier-Mill-slat",
	}
	got := ids(&tm)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("rows = %v\nwant %v", got, want)
	}
	if tm.flatList[3].Depth != 3 {
		t.Errorf("supplier depth = %d, want 3", tm.flatList[3].Depth)
	}
}

func TestDefaultExpandDepth(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(chairSession(t))
	// chair (0) and its maker (1) are open; the BOM atoms at depth 2 are not.
	if got := tm.Len(); got != 5 {
		t.Fatalf("expected 5 rows, got %v", ids(&tm))
	}
}

func TestNavigationAndToggle(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.SetSize(80, 20)
	tm.Build(chairSession(t))

	tm.JumpToBottom()
	if n := tm.SelectedNode(); n.Data.ID != "back" {
		t.Fatalf("bottom = %s", n.Data.ID)
	}
	tm.ToggleExpand()
	if tm.Len() != 6 {
		t.Fatalf("expanding back should add its maker, got %v", ids(&tm))
	}
	tm.MoveDown()
	tm.JumpToParent()
	if n := tm.SelectedNode(); n.Data.ID != "back" {
		t.Errorf("parent = %s", n.Data.ID)
	}
	tm.CollapseAll()
	if tm.Len() != 1 || tm.SelectedNode().Data.ID != "chair" {
		t.Errorf("collapse all should leave the root selected, got %v", ids(&tm))
	}
	tm.ExpandAll()
	if tm.Len() != 9 {
		t.Errorf("expand all = %d rows", tm.Len())
	}
}

func TestRebuildKeepsSelectionAndExpansion(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(chairSession(t))
	tm.JumpToBottom()
	tm.ToggleExpand() // open "back"

	tm.Build(chairSession(t))
	if n := tm.SelectedNode(); n == nil || n.Data.ID != "back" {
		t.Fatalf("selection lost: %v", n)
	}
	if !tm.SelectedNode().Expanded {
		t.Error("explicit expansion should survive a rebuild")
	}
}

func TestViewMarksSessionState(t *testing.T) {
	s := chairSession(t)
	tm := NewTreeModel(TestTheme())
	tm.SetSize(100, 30)
	tm.SetExpandAll(true)
	tm.Build(s)

	if _, err := s.Click("maker-Shop-back"); err != nil {
		t.Fatal(err)
	}
	view := tm.View()
	for _, want := range []string{"CLASS", "maker-Shop-chair", "missing-seat", "Slat", "└── "} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStatePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view", "chair.json")

	s := chairSession(t)
	tm := NewTreeModel(TestTheme())
	tm.SetStatePath(path)
	tm.Build(s)
	tm.JumpToBottom()
	tm.ToggleExpand()
	if _, err := s.Click("maker-Shop-chair"); err != nil {
		t.Fatal(err)
	}
	tm.SaveState()

	s2 := chairSession(t)
	tm2 := NewTreeModel(TestTheme())
	tm2.SetStatePath(path)
	tm2.Build(s2)
	if dropped := tm2.LoadState(); len(dropped) != 0 {
		t.Errorf("dropped %v", dropped)
	}
	if tm2.Len() != 6 {
		t.Errorf("expansion not restored: %v", ids(&tm2))
	}
	if _, open := s2.Panel(); !open {
		t.Error("panel not restored")
	}
	if !s2.Highlighted("maker-Shop-chair") {
		t.Error("highlight not restored")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"日本語テキスト", 5, "日本…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
	if got := padRight("日本", 6); got != "日本  " {
		t.Errorf("padRight = %q", got)
	}
}
