package compat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ilmirus/compatgrep/pkg/classfile"
)

func classFiles(paths ...string) []*classfile.ClassFile {
	out := make([]*classfile.ClassFile, len(paths))
	for i, p := range paths {
		out[i] = classfile.NewClassFile(p, nil)
	}
	return out
}

func paths(files []*classfile.ClassFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestIsCompatEntry(t *testing.T) {
	tests := map[string]bool{
		"android/support/v4/view/ViewCompat.class":            true,
		"android/support/v4/view/ViewCompat$Impl.class":       false,
		"android/support/v4/view/MenuCompat$ItemCompat.class": true,
		"android/support/v4/view/ViewCompat.java":             false,
		"android/view/View.class":                             false,
	}
	for name, want := range tests {
		if got := IsCompatEntry(name); got != want {
			t.Errorf("IsCompatEntry(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDeriveOriginName(t *testing.T) {
	tests := []struct {
		entry  string
		want   string
		wantOK bool
	}{
		{"android/support/v4/view/ViewCompat.class", "View", true},
		{"android/support/v4/view/MenuItemCompat.class", "MenuItem", true},
		{"android/support/v4/view/AccessibilityDelegateCompat$Impl.class", "", false},
		{"android/support/v4/widget/PopupWindowCompat$ListCompat.class", "PopupWindowCompat$List", true},
		{"a/Compat.class", "", false},
		{"a/Outer$Compat.class", "", false},
		{"a/Widget.class", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.entry, func(t *testing.T) {
			got, ok := DeriveOriginName(tc.entry)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("DeriveOriginName = (%q, %v), want (%q, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestFindOrigin(t *testing.T) {
	reference := classFiles(
		"android/view/View.class",
		"android/view/ViewGroup$LayoutParams.class",
		"android/widget/ListView/Inner.class",
		"android/app/View.class",
		"android/view/accessibility/AccessibilityNodeInfo$AccessibilityAction.class",
	)
	tests := []struct {
		candidate string
		want      string
	}{
		// First in archive order wins.
		{"View", "android/view/View.class"},
		// Exact simple name of a nested class.
		{"ViewGroup$LayoutParams", "android/view/ViewGroup$LayoutParams.class"},
		// Top-level compat, nested origin.
		{"AccessibilityAction", "android/view/accessibility/AccessibilityNodeInfo$AccessibilityAction.class"},
		{"LayoutParams", "android/view/ViewGroup$LayoutParams.class"},
		// Nested compat, origin laid out as a path.
		{"ListView$Inner", "android/widget/ListView/Inner.class"},
		// A suffix must start at a segment boundary.
		{"Params", ""},
		{"Missing", ""},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.candidate, func(t *testing.T) {
			got := FindOrigin(tc.candidate, reference)
			gotPath := ""
			if got != nil {
				gotPath = got.Path
			}
			if gotPath != tc.want {
				t.Fatalf("FindOrigin(%q) = %q, want %q", tc.candidate, gotPath, tc.want)
			}
		})
	}
}

func TestFindOriginIsDeterministic(t *testing.T) {
	reference := classFiles(
		"b/Outer$Widget.class",
		"a/Outer$Widget.class",
		"c/Widget/Sub.class",
	)
	first := FindOrigin("Widget", reference)
	for i := 0; i < 10; i++ {
		if got := FindOrigin("Widget", reference); got != first {
			t.Fatalf("run %d: FindOrigin changed its answer", i)
		}
	}
	if first == nil || first.Path != "b/Outer$Widget.class" {
		t.Fatalf("FindOrigin picked %v, want the first entry", first)
	}
	if FindOrigin("Orphan", reference) != nil || FindOrigin("Orphan", reference) != nil {
		t.Fatal("absent origin must stay absent")
	}
}

func TestPairAll(t *testing.T) {
	compats := classFiles(
		"android/support/v4/view/ViewCompat.class",
		"android/support/v4/app/OrphanCompat.class",
		"android/support/v4/view/ViewGroupCompat.class",
		"android/support/v4/view/ViewCompat$Impl.class",
	)
	reference := classFiles(
		"android/view/ViewGroup.class",
		"android/view/View.class",
	)

	res := PairAll(compats, reference)

	var gotPairs [][2]string
	for _, p := range res.Pairs {
		gotPairs = append(gotPairs, [2]string{p.Origin().Path, p.Compat().Path})
	}
	wantPairs := [][2]string{
		{"android/view/View.class", "android/support/v4/view/ViewCompat.class"},
		{"android/view/ViewGroup.class", "android/support/v4/view/ViewGroupCompat.class"},
	}
	if diff := cmp.Diff(wantPairs, gotPairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
	wantOrphans := []string{
		"android/support/v4/app/OrphanCompat.class",
		"android/support/v4/view/ViewCompat$Impl.class",
	}
	if diff := cmp.Diff(wantOrphans, paths(res.Orphans)); diff != "" {
		t.Fatalf("orphans mismatch (-want +got):\n%s", diff)
	}
}

func TestPairAllEmptyInputs(t *testing.T) {
	res := PairAll(nil, classFiles("android/view/View.class"))
	if len(res.Pairs) != 0 || len(res.Orphans) != 0 {
		t.Fatalf("PairAll(nil) = %+v, want empty", res)
	}
	res = PairAll(classFiles("a/WidgetCompat.class"), nil)
	if len(res.Pairs) != 0 || len(res.Orphans) != 1 {
		t.Fatalf("PairAll(no reference) = %+v, want one orphan", res)
	}
}
