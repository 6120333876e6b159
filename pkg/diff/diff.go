// Package diff classifies how a compat class drifted from the origin class
// it shims. Compat classes model each origin instance method as a static
// method taking the origin instance as an explicit first parameter; every
// departure from that convention is reported as an Inconsistency.
package diff

import (
	"fmt"
	"strings"

	"github.com/ilmirus/compatgrep/pkg/classfile"
	"github.com/ilmirus/compatgrep/pkg/compat"
)

// Reason classifies why a compat method does not line up with its origin.
type Reason int

const (
	NoOriginCompanion      Reason = iota // Origin has no method of that name.
	TooFewOriginCompanions               // Origin has fewer overloads than compat.
	EmptyParams                          // Compat overload takes no parameters.
	NotOriginOnFirstParam                // First parameter is not the origin type.
	DifferentParams                      // No origin overload takes the remaining parameters.
	DifferentReturnType                  // Return type is itself a compat type.
)

var reasonCodes = [...]string{
	NoOriginCompanion:      "NO_ORIGIN_COMPANION",
	TooFewOriginCompanions: "TOO_FEW_ORIGIN_COMPANIONS",
	EmptyParams:            "EMPTY_PARAMS",
	NotOriginOnFirstParam:  "NOT_ORIGIN_ON_FIRST_PARAM",
	DifferentParams:        "DIFFERENT_PARAMS",
	DifferentReturnType:    "DIFFERENT_RETURN_TYPE",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonCodes) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonCodes[r]
}

// Inconsistency records one finding for a compat method.
type Inconsistency struct {
	MethodName string
	Origin     *classfile.Method // nil when no single origin overload applies.
	Compat     classfile.Method
	Reason     Reason
}

// Classify compares the method tables of a pair. The only error is a class
// that fails to decode.
func Classify(pair compat.Pair) ([]Inconsistency, error) {
	originType, err := pair.Origin().TypeDescriptor()
	if err != nil {
		return nil, err
	}
	originMethods, err := pair.Origin().Methods()
	if err != nil {
		return nil, err
	}
	compatMethods, err := pair.Compat().Methods()
	if err != nil {
		return nil, err
	}
	return ClassifyMethods(originType, originMethods, compatMethods), nil
}

type group struct {
	name    string
	methods []classfile.Method
}

// groupByName groups methods accepted by keep, ordered by the first kept
// method of each name.
func groupByName(methods []classfile.Method, keep func(classfile.Method) bool) []group {
	var groups []group
	at := make(map[string]int)
	for _, m := range methods {
		if keep != nil && !keep(m) {
			continue
		}
		i, ok := at[m.Name]
		if !ok {
			i = len(groups)
			at[m.Name] = i
			groups = append(groups, group{name: m.Name})
		}
		groups[i].methods = append(groups[i].methods, m)
	}
	return groups
}

func compatCandidate(m classfile.Method) bool {
	return !m.IsInitializer() && m.IsStatic()
}

// ClassifyMethods is Classify over decoded method tables. originType is the
// origin's type descriptor ("Landroid/view/View;"). The result follows the
// order in which compat method names first appear, then overload order; an
// empty result means the pair is consistent. Inputs are not modified.
func ClassifyMethods(originType string, origin, compatMethods []classfile.Method) []Inconsistency {
	originGroups := make(map[string][]classfile.Method)
	for _, g := range groupByName(origin, nil) {
		originGroups[g.name] = g.methods
	}

	var out []Inconsistency
	for _, g := range groupByName(compatMethods, compatCandidate) {
		overloads, ok := originGroups[g.name]
		switch {
		case !ok:
			out = append(out, Inconsistency{MethodName: g.name, Compat: g.methods[0], Reason: NoOriginCompanion})
			continue
		case len(overloads) < len(g.methods):
			out = append(out, Inconsistency{MethodName: g.name, Compat: g.methods[0], Reason: TooFewOriginCompanions})
			continue
		}
		for _, m := range g.methods {
			if inc, bad := classifyOverload(originType, overloads, m); bad {
				out = append(out, inc)
			}
		}
	}
	return out
}

func classifyOverload(originType string, overloads []classfile.Method, m classfile.Method) (Inconsistency, bool) {
	inc := Inconsistency{MethodName: m.Name, Compat: m}
	if len(m.ParameterTypes) == 0 {
		inc.Reason = EmptyParams
		return inc, true
	}
	if m.ParameterTypes[0] != originType {
		inc.Reason = NotOriginOnFirstParam
		return inc, true
	}
	instance := classfile.Method{Name: m.Name, ParameterTypes: m.ParameterTypes[1:]}
	var match *classfile.Method
	for i := range overloads {
		if overloads[i].SameOverload(instance) {
			o := overloads[i]
			match = &o
			break
		}
	}
	if match == nil {
		inc.Reason = DifferentParams
		return inc, true
	}
	// The return type is checked against itself, not against match: a
	// compat type in return position is suspicious on its own.
	if strings.ReplaceAll(m.ReturnType, compat.Suffix, "") != m.ReturnType {
		inc.Origin = match
		inc.Reason = DifferentReturnType
		return inc, true
	}
	return Inconsistency{}, false
}

// GenericMethod is a compat method whose generic signature is shown as a
// lint note. Matching only ever uses the erased descriptor.
type GenericMethod struct {
	Class  string
	Method classfile.Method
}

// GenericMethods lists methods of f that carry a generic signature.
func GenericMethods(f *classfile.ClassFile) ([]GenericMethod, error) {
	methods, err := f.Methods()
	if err != nil {
		return nil, err
	}
	var out []GenericMethod
	for _, m := range methods {
		if m.HasGenericSignature() {
			out = append(out, GenericMethod{Class: f.Path, Method: m})
		}
	}
	return out, nil
}
