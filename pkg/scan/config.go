package scan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig reports a run configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

const (
	// DefaultNestedEntry is the class archive inside an aar.
	DefaultNestedEntry = "classes.jar"
	// DefaultAnnotationType marks origin classes that have a compat shim.
	DefaultAnnotationType = "Lcompatgrep/annotation/HasCompat;"
	// DefaultAnnotationParam names the element holding the compat class.
	DefaultAnnotationParam = "value"
)

// AnnotationConfig selects the annotation injected into origin classes.
type AnnotationConfig struct {
	Type    string `toml:"type"`
	Visible bool   `toml:"visible"`
	Param   string `toml:"param"`
}

// Config is one run. Paths are only read by the CLI; Run works on the
// injected Sources.
//
//	shim = "support-compat-26.1.0.aar"
//	reference = "android.jar"
//	nested_entry = "classes.jar"
//	output = "android-annotated.jar"
//
//	[annotation]
//	type = "Lcompatgrep/annotation/HasCompat;"
//	visible = false
//	param = "value"
type Config struct {
	Shim        string           `toml:"shim"`
	Reference   string           `toml:"reference"`
	NestedEntry string           `toml:"nested_entry"`
	Output      string           `toml:"output"`
	Annotation  AnnotationConfig `toml:"annotation"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		NestedEntry: DefaultNestedEntry,
		Annotation: AnnotationConfig{
			Type:  DefaultAnnotationType,
			Param: DefaultAnnotationParam,
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys the file sets but
// Config does not know are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("load config %s: %w: unknown keys %s", path, ErrInvalidConfig, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks the fields Run depends on.
func (c Config) Validate() error {
	if c.NestedEntry == "" {
		return fmt.Errorf("%w: nested_entry is empty", ErrInvalidConfig)
	}
	t := c.Annotation.Type
	if len(t) < 3 || t[0] != 'L' || !strings.HasSuffix(t, ";") || strings.ContainsAny(t[1:len(t)-1], ";.[") {
		return fmt.Errorf("%w: annotation type %q is not a class descriptor", ErrInvalidConfig, t)
	}
	if c.Annotation.Param == "" {
		return fmt.Errorf("%w: annotation param is empty", ErrInvalidConfig)
	}
	return nil
}
