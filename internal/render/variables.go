package render

import (
	"errors"
	"fmt"
	"sort"
	"text/template"
	"text/template/parse"
)

// Variables lists the top-level keys src reads from its data. Fields read
// inside range or with blocks belong to the element and are not reported,
// except through $.
func Variables(src string, extra template.FuncMap) ([]string, error) {
	tmpl, err := compile("variables", src, extra)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			walkNode(t.Tree.Root, true, seen)
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Validate fails when src references a variable outside allowed.
func Validate(name, src string, allowed []string, extra template.FuncMap) error {
	vars, err := Variables(src, extra)
	if err != nil {
		var te *TemplateError
		if errors.As(err, &te) {
			te.Name = name
		}
		return err
	}
	known := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		known[a] = struct{}{}
	}
	for _, v := range vars {
		if _, ok := known[v]; !ok {
			return &TemplateError{Name: name, Err: fmt.Errorf("undefined variable %q (available: %v)", v, allowed)}
		}
	}
	return nil
}

func walkNode(node parse.Node, top bool, seen map[string]struct{}) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walkNode(child, top, seen)
		}
	case *parse.ActionNode:
		walkPipe(n.Pipe, top, seen)
	case *parse.IfNode:
		walkPipe(n.Pipe, top, seen)
		walkNode(n.List, top, seen)
		walkNode(n.ElseList, top, seen)
	case *parse.RangeNode:
		walkPipe(n.Pipe, top, seen)
		walkNode(n.List, false, seen)
		walkNode(n.ElseList, top, seen)
	case *parse.WithNode:
		walkPipe(n.Pipe, top, seen)
		walkNode(n.List, false, seen)
		walkNode(n.ElseList, top, seen)
	case *parse.TemplateNode:
		walkPipe(n.Pipe, top, seen)
	}
}

func walkPipe(pipe *parse.PipeNode, top bool, seen map[string]struct{}) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			walkArg(arg, top, seen)
		}
	}
}

func walkArg(arg parse.Node, top bool, seen map[string]struct{}) {
	switch n := arg.(type) {
	case *parse.FieldNode:
		if top && len(n.Ident) > 0 {
			seen[n.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = struct{}{}
		}
	case *parse.ChainNode:
		walkArg(n.Node, top, seen)
	case *parse.PipeNode:
		walkPipe(n, top, seen)
	}
}
