package diff

import (
	"fmt"
	"strings"

	"github.com/ilmirus/compatgrep/pkg/classfile"
)

// FormatOrphans lists compat classes that have no origin, one per line.
//
//	orphan android/support/v4/app/FooCompat.class
func FormatOrphans(orphans []*classfile.ClassFile) string {
	var b strings.Builder
	for _, f := range orphans {
		fmt.Fprintf(&b, "orphan %s\n", f.Path)
	}
	return b.String()
}

// FormatPair renders the findings of one pair as a block. A consistent pair
// renders as the empty string.
//
//	android/view/View.class <- android/support/v4/view/ViewCompat.class:
//	  setAlpha: DIFFERENT_PARAMS
//	    compat: void setAlpha(android.view.View, double)
//	  getParent: DIFFERENT_RETURN_TYPE
//	    compat: android.support.v4.view.ViewParentCompat getParent(android.view.View)
//	    origin: android.view.ViewParent getParent()
func FormatPair(originPath, compatPath string, incs []Inconsistency) string {
	if len(incs) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <- %s:\n", originPath, compatPath)
	for _, inc := range incs {
		fmt.Fprintf(&b, "  %s: %s\n", inc.MethodName, inc.Reason)
		fmt.Fprintf(&b, "    compat: %s\n", inc.Compat)
		if inc.Origin != nil {
			fmt.Fprintf(&b, "    origin: %s\n", inc.Origin)
		}
	}
	return b.String()
}

// FormatGenericLint notes each method with a generic signature.
//
//	generic android/support/v4/util/ObjectsCompat.class: <T>(TT;)TT; requireNonNull
func FormatGenericLint(methods []GenericMethod) string {
	var b strings.Builder
	for _, g := range methods {
		fmt.Fprintf(&b, "generic %s: %s %s\n", g.Class, g.Method.Signature, g.Method.Name)
	}
	return b.String()
}
