package objtree

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dreamruntime/dmrt/internal/vm"
)

// treeFile is the declarative YAML shape cmd/dmrt reads to build a
// StaticTree without a production object-tree compiler: a flat list of
// types, each naming its parent by path (empty for a root type), its
// instance variables, and any global variable ids.
type treeFile struct {
	Types []typeEntry `yaml:"types"`
}

type typeEntry struct {
	Path      string          `yaml:"path"`
	Parent    string          `yaml:"parent"`
	Variables []variableEntry `yaml:"variables"`
	Globals   []globalEntry   `yaml:"globals"`
}

type variableEntry struct {
	Name    string     `yaml:"name"`
	Default valueEntry `yaml:"default"`
	Flags   []string   `yaml:"flags"`
}

type globalEntry struct {
	Name string `yaml:"name"`
	ID   uint32 `yaml:"id"`
}

// valueEntry mirrors vm.Value's scalar kinds as plain YAML: kind is one of
// "null", "integer", "double", "string", "path".
type valueEntry struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

func (e valueEntry) toValue() (vm.Value, error) {
	switch e.Kind {
	case "", "null":
		return vm.NullVal(), nil
	case "integer":
		var n int64
		if _, err := fmt.Sscanf(e.Value, "%d", &n); err != nil {
			return vm.Value{}, fmt.Errorf("parsing integer default %q: %w", e.Value, err)
		}
		return vm.IntVal(int32(n)), nil
	case "double":
		var f float64
		if _, err := fmt.Sscanf(e.Value, "%g", &f); err != nil {
			return vm.Value{}, fmt.Errorf("parsing double default %q: %w", e.Value, err)
		}
		return vm.DoubleVal(f), nil
	case "string":
		return vm.StringVal(e.Value), nil
	case "path":
		return vm.PathVal(vm.NewPath(e.Value)), nil
	default:
		return vm.Value{}, fmt.Errorf("unknown default value kind %q", e.Kind)
	}
}

func varFlags(names []string) vm.VarFlag {
	var f vm.VarFlag
	for _, n := range names {
		switch n {
		case "const":
			f |= vm.FlagConst
		case "global":
			f |= vm.FlagGlobal
		case "readonly":
			f |= vm.FlagCompiletimeReadonly
		case "saved":
			f |= vm.FlagSaved
		}
	}
	return f
}

// LoadFile parses a declarative tree description (see treeFile) and returns
// a ready StaticTree. Types may be listed in any order; a type naming a
// parent path not yet seen is linked once every entry has been parsed.
func LoadFile(path string) (*StaticTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree file %q: %w", path, err)
	}
	var tf treeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing tree file %q: %w", path, err)
	}

	defs := make(map[string]*vm.ObjectDefinition, len(tf.Types))
	var nextID vm.TypeID
	for _, te := range tf.Types {
		def := &vm.ObjectDefinition{
			TypeID:    nextID,
			Path:      vm.NewPath(te.Path),
			Variables: make(map[string]*vm.Variable, len(te.Variables)),
			Procs:     make(map[string]*vm.ProcDef),
			Globals:   make(map[string]uint32, len(te.Globals)),
		}
		nextID++
		for _, ve := range te.Variables {
			defVal, err := ve.Default.toValue()
			if err != nil {
				return nil, fmt.Errorf("type %s, variable %s: %w", te.Path, ve.Name, err)
			}
			def.Variables[ve.Name] = &vm.Variable{Name: ve.Name, Default: defVal, Flags: varFlags(ve.Flags)}
		}
		for _, ge := range te.Globals {
			def.Globals[ge.Name] = ge.ID
		}
		defs[te.Path] = def
	}
	for _, te := range tf.Types {
		if te.Parent == "" {
			continue
		}
		parent, ok := defs[te.Parent]
		if !ok {
			return nil, fmt.Errorf("type %s: unknown parent %s", te.Path, te.Parent)
		}
		defs[te.Path].Parent = parent
	}

	ordered := make([]*vm.ObjectDefinition, 0, len(defs))
	for _, te := range tf.Types {
		ordered = append(ordered, defs[te.Path])
	}
	return NewStaticTree(ordered...), nil
}
