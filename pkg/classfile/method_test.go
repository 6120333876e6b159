package classfile_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ilmirus/compatgrep/pkg/classfile"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc   string
		params []string
		ret    string
	}{
		{desc: "()V", params: []string{}, ret: "V"},
		{desc: "(Landroid/view/View;F)V", params: []string{"Landroid/view/View;", "F"}, ret: "V"},
		{desc: "([I[[Ljava/lang/String;J)[B", params: []string{"[I", "[[Ljava/lang/String;", "J"}, ret: "[B"},
		{desc: "(ZCSBD)Ljava/lang/Object;", params: []string{"Z", "C", "S", "B", "D"}, ret: "Ljava/lang/Object;"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			params, ret, err := classfile.ParseMethodDescriptor(tt.desc)
			if err != nil {
				t.Fatalf("ParseMethodDescriptor: %v", err)
			}
			if diff := cmp.Diff(tt.params, params); diff != "" {
				t.Fatalf("params mismatch (-want +got):\n%s", diff)
			}
			if ret != tt.ret {
				t.Fatalf("ret = %q, want %q", ret, tt.ret)
			}
		})
	}
}

func TestParseMethodDescriptorRejectsGarbage(t *testing.T) {
	for _, desc := range []string{"", "V", "(", "(I", "(L;)V", "(Q)V", "()", "()VV", "(I)Ljava/lang/String"} {
		if _, _, err := classfile.ParseMethodDescriptor(desc); !errors.Is(err, classfile.ErrMalformedClass) {
			t.Fatalf("ParseMethodDescriptor(%q) error = %v, want ErrMalformedClass", desc, err)
		}
	}
}

func TestMethodString(t *testing.T) {
	m := classfile.Method{
		Name:           "setTag",
		ReturnType:     "V",
		ParameterTypes: []string{"Landroid/view/View;", "I", "[Ljava/lang/Object;"},
	}
	want := "void setTag(android.view.View, int, java.lang.Object[])"
	if got := m.String(); got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
}

func TestJavaTypeName(t *testing.T) {
	tests := map[string]string{
		"Z":                           "boolean",
		"[[D":                         "double[][]",
		"Landroid/view/View$OnClick;": "android.view.View$OnClick",
		"V":                           "void",
	}
	for desc, want := range tests {
		if got := classfile.JavaTypeName(desc); got != want {
			t.Fatalf("JavaTypeName(%q) = %q, want %q", desc, got, want)
		}
	}
}

func TestSameOverloadIgnoresReturnType(t *testing.T) {
	a := classfile.Method{Name: "get", ReturnType: "I", ParameterTypes: []string{"J"}}
	b := classfile.Method{Name: "get", ReturnType: "J", ParameterTypes: []string{"J"}}
	c := classfile.Method{Name: "get", ReturnType: "I", ParameterTypes: []string{"I"}}
	if !a.SameOverload(b) {
		t.Fatal("methods differing only in return type should be the same overload")
	}
	if a.SameOverload(c) {
		t.Fatal("methods with different parameters should not be the same overload")
	}
}
