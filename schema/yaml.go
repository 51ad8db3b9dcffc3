// Package schema compiles a declarative YAML variable list into a
// directory blob and buffer layout, standing in for the out-of-scope `.st`
// DSL front end and its code generator (§1 Non-goals: "the `.st` DSL front
// end, its compiler/codegen pipeline"). gopkg.in/yaml.v3 is the teacher's
// own (transitively pulled) YAML library, promoted here to a direct,
// load-bearing dependency.
package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gostored/libstored/directory"
	"github.com/gostored/libstored/storederr"
	"github.com/gostored/libstored/store"
)

// yamlVariable is one entry of a schema document's variable list.
type yamlVariable struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Length   int    `yaml:"length"`
	Function bool   `yaml:"function"`
}

type yamlDocument struct {
	Variables []yamlVariable `yaml:"variables"`
}

// Descriptor is the compiled result of LoadYAML: a directory blob ready
// for store.New, the buffer size it implies, and the function slots in
// index order so the embedding application can bind callbacks to them by
// position.
type Descriptor struct {
	Directory    []byte
	BufferSize   int
	FunctionSlot []string // FunctionSlot[i] is the name bound to functions[i]
}

var typeNames = map[string]store.Type{
	"int8": store.Int8, "int16": store.Int16, "int32": store.Int32, "int64": store.Int64,
	"uint8": store.Uint8, "uint16": store.Uint16, "uint32": store.Uint32, "uint64": store.Uint64,
	"float": store.Float, "double": store.Double, "bool": store.Bool,
	"pointer32": store.Pointer32, "pointer64": store.Pointer64,
	"blob": store.Blob, "string": store.String,
}

// LoadYAML parses a schema document and compiles it into a Descriptor.
// Variables are laid out in the buffer in document order with no padding,
// matching the teacher's "no hidden layout decisions" style of explicit,
// order-preserving compilation passes (lang/compiler lowers AST nodes in
// source order for the same reason: a generated artifact should be
// traceable back to its textual position).
func LoadYAML(data []byte) (Descriptor, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Descriptor{}, storederr.Wrap(storederr.BadFrame, "schema: invalid yaml", err)
	}

	var entries []directory.BuildEntry
	var functionSlots []string
	offset := 0
	funcIdx := 0

	for _, v := range doc.Variables {
		if v.Name == "" {
			return Descriptor{}, storederr.New(storederr.BadFrame, "schema: variable missing name")
		}
		typ, ok := typeNames[strings.ToLower(v.Type)]
		if !ok {
			return Descriptor{}, storederr.New(storederr.BadFrame, fmt.Sprintf("schema: %s: unknown type %q", v.Name, v.Type))
		}

		entry := directory.BuildEntry{Name: v.Name}

		if v.Function {
			entry.Type = byte(typ.AsFunction())
			entry.Offset = funcIdx
			funcIdx++
			functionSlots = append(functionSlots, v.Name)
			entries = append(entries, entry)
			continue
		}

		entry.Type = byte(typ)
		size, fixed := typ.FixedSize()
		if !fixed {
			if v.Length <= 0 {
				return Descriptor{}, storederr.New(storederr.BadFrame, fmt.Sprintf("schema: %s: blob/string requires a positive length", v.Name))
			}
			entry.VariableLength = true
			entry.Length = v.Length
			size = v.Length
		}
		entry.Offset = offset
		offset += size
		entries = append(entries, entry)
	}

	dir, err := directory.Build(entries)
	if err != nil {
		return Descriptor{}, storederr.Wrap(storederr.BadFrame, "schema: directory build failed", err)
	}
	return Descriptor{Directory: dir, BufferSize: offset, FunctionSlot: functionSlots}, nil
}
