package plugins

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// goDefinitionsFunc is the function a Go plugin file must declare, either as
// func() []map[string]any or func() ([]map[string]any, error).
const goDefinitionsFunc = "Definitions"

// LoadGoDefinitionFile interprets one Go plugin file with yaegi and decodes
// each map its Definitions function returns. Entry n is reported as
// path#n.
func LoadGoDefinitionFile(path string) ([]DefinitionFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	raws, err := evalDefinitions(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	files := make([]DefinitionFile, 0, len(raws))
	for idx, raw := range raws {
		var node yaml.Node
		if err := node.Encode(raw); err != nil {
			return nil, fmt.Errorf("plugin: %s definition %d: %w", path, idx+1, err)
		}
		def, err := decodeDefinition(&node)
		if err != nil {
			return nil, fmt.Errorf("plugin: %s definition %d: %w", path, idx+1, err)
		}
		files = append(files, DefinitionFile{Definition: def, Path: fmt.Sprintf("%s#%d", path, idx+1)})
	}
	return files, nil
}

func evalDefinitions(path string) ([]map[string]any, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}
	value, err := i.Eval(goDefinitionsFunc)
	if err != nil {
		return nil, fmt.Errorf("missing %s function: %w", goDefinitionsFunc, err)
	}
	return callDefinitions(value)
}

func callDefinitions(value reflect.Value) ([]map[string]any, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDefinitionsFunc)
	}
	switch fn := value.Interface().(type) {
	case func() []map[string]any:
		return fn(), nil
	case func() ([]map[string]any, error):
		return fn()
	}

	// Interpreted signatures do not always assert to the compiled func
	// type; call through reflect and convert the entries one by one.
	ft := value.Type()
	if ft.NumIn() != 0 || ft.NumOut() < 1 || ft.NumOut() > 2 || ft.Out(0).Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s has type %s, want func() []map[string]any", goDefinitionsFunc, ft)
	}
	results := value.Call(nil)
	if len(results) == 2 && !results[1].IsNil() {
		if err, ok := results[1].Interface().(error); ok {
			return nil, err
		}
		return nil, fmt.Errorf("%s returned a non-error second value", goDefinitionsFunc)
	}
	list := results[0]
	out := make([]map[string]any, list.Len())
	for idx := range out {
		entry, ok := list.Index(idx).Interface().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s entry %d is %T, want map[string]any", goDefinitionsFunc, idx+1, list.Index(idx).Interface())
		}
		out[idx] = entry
	}
	return out, nil
}
