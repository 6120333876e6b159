package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/ilmirus/compatgrep/pkg/archive"
	"github.com/ilmirus/compatgrep/pkg/classfile"
	"github.com/ilmirus/compatgrep/pkg/classfile/classfiletest"
	"github.com/ilmirus/compatgrep/pkg/scan"
)

const pubStatic = classfile.AccPublic | classfile.AccStatic

func writeZip(t *testing.T, path string, entries map[string][]byte, order ...string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

// writeFixtures lays out a shim aar and a reference jar in dir.
func writeFixtures(t *testing.T, dir string) (shim, ref string) {
	t.Helper()
	classesPath := filepath.Join(dir, "classes.jar")
	writeZip(t, classesPath, map[string][]byte{
		"android/support/v4/view/ViewCompat.class": classfiletest.New("android/support/v4/view/ViewCompat").
			Method(pubStatic, "setAlpha", "(Landroid/view/View;F)V").
			Method(pubStatic, "setElevation", "(Landroid/view/View;F)V").
			Bytes(),
		"android/support/v4/app/OrphanCompat.class": classfiletest.New("android/support/v4/app/OrphanCompat").Bytes(),
	}, "android/support/v4/view/ViewCompat.class", "android/support/v4/app/OrphanCompat.class")
	classes, err := os.ReadFile(classesPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	shim = filepath.Join(dir, "support-compat.aar")
	writeZip(t, shim, map[string][]byte{
		"AndroidManifest.xml": []byte("<manifest/>"),
		"classes.jar":         classes,
	}, "AndroidManifest.xml", "classes.jar")

	ref = filepath.Join(dir, "android.jar")
	writeZip(t, ref, map[string][]byte{
		"android/view/View.class": classfiletest.New("android/view/View").
			Method(classfile.AccPublic, "setAlpha", "(F)V").
			Bytes(),
		"res/values.xml": []byte("<resources/>"),
	}, "android/view/View.class", "res/values.xml")
	return shim, ref
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(zap.NewNop())
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version Execute: %v", err)
	}
	if out != "compatgrep "+version+"\n" {
		t.Fatalf("version output = %q", out)
	}
}

func TestCheckCmdReportsFindings(t *testing.T) {
	shim, ref := writeFixtures(t, t.TempDir())
	refBefore, err := os.ReadFile(ref)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	out, err := execute(t, "check", "--shim", shim, "--reference", ref)
	if err != nil {
		t.Fatalf("check Execute: %v\noutput:\n%s", err, out)
	}
	for _, want := range []string{
		"orphan android/support/v4/app/OrphanCompat.class\n",
		"android/view/View.class <- android/support/v4/view/ViewCompat.class:\n",
		"  setElevation: NO_ORIGIN_COMPANION\n",
		"1 pair(s), 1 orphan(s), 1 inconsistency(ies)\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("check output = %q, want to contain %q", out, want)
		}
	}

	refAfter, err := os.ReadFile(ref)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(refBefore, refAfter) {
		t.Fatal("check modified the reference archive")
	}
}

func TestCheckCmdRequiresInputs(t *testing.T) {
	_, err := execute(t, "check", "--shim", "x.aar")
	if !errors.Is(err, scan.ErrInvalidConfig) {
		t.Fatalf("check error = %v, want ErrInvalidConfig", err)
	}
}

func TestAnnotateCmdWritesOutput(t *testing.T) {
	dir := t.TempDir()
	shim, ref := writeFixtures(t, dir)
	outPath := filepath.Join(dir, "android-annotated.jar")

	out, err := execute(t, "annotate", "--shim", shim, "--reference", ref, "--out", outPath)
	if err != nil {
		t.Fatalf("annotate Execute: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "annotated 1 class(es) into "+outPath) {
		t.Fatalf("annotate output = %q", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	a, err := archive.Open(data)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	view, err := a.ReadEntry("android/view/View.class")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	c, err := classfile.Parse(view)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	has, err := c.HasAnnotation(scan.DefaultAnnotationType)
	if err != nil || !has {
		t.Fatalf("HasAnnotation = %v, %v; want true", has, err)
	}
}

func TestAnnotateCmdUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	shim, ref := writeFixtures(t, dir)
	outPath := filepath.Join(dir, "out.jar")
	cfgPath := filepath.Join(dir, "compatgrep.toml")
	body := "shim = " + quote(shim) + "\nreference = " + quote(ref) + "\noutput = " + quote(outPath) +
		"\n\n[annotation]\ntype = \"Lcom/example/Shimmed;\"\nvisible = true\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if out, err := execute(t, "annotate", "--config", cfgPath); err != nil {
		t.Fatalf("annotate Execute: %v\noutput:\n%s", err, out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	a, err := archive.Open(data)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	view, err := a.ReadEntry("android/view/View.class")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	c, err := classfile.Parse(view)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	anns, err := c.Annotations(true)
	if err != nil || len(anns) != 1 || anns[0].Type != "Lcom/example/Shimmed;" {
		t.Fatalf("visible annotations = %+v, %v", anns, err)
	}
}

func TestAnnotateCmdRequiresOutput(t *testing.T) {
	shim, ref := writeFixtures(t, t.TempDir())
	_, err := execute(t, "annotate", "--shim", shim, "--reference", ref)
	if !errors.Is(err, scan.ErrInvalidConfig) {
		t.Fatalf("annotate error = %v, want ErrInvalidConfig", err)
	}
}

func TestLsCmd(t *testing.T) {
	shim, _ := writeFixtures(t, t.TempDir())

	out, err := execute(t, "ls", shim)
	if err != nil {
		t.Fatalf("ls Execute: %v", err)
	}
	if !strings.Contains(out, "  AndroidManifest.xml\n") || !strings.Contains(out, "  classes.jar\n") {
		t.Fatalf("ls output = %q", out)
	}
	if !strings.Contains(out, "        11  AndroidManifest.xml\n") {
		t.Fatalf("ls output = %q, want the manifest size", out)
	}

	out, err = execute(t, "ls", shim, "--nested", "classes.jar")
	if err != nil {
		t.Fatalf("ls --nested Execute: %v", err)
	}
	if !strings.Contains(out, "android/support/v4/view/ViewCompat.class") {
		t.Fatalf("ls --nested output = %q", out)
	}

	if _, err := execute(t, "ls", shim, "--nested", "libs/missing.jar"); !errors.Is(err, archive.ErrEntryNotFound) {
		t.Fatalf("ls --nested missing error = %v, want ErrEntryNotFound", err)
	}
}

func quote(s string) string {
	return "'" + s + "'"
}
