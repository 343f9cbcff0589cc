package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// pythonAdapter extracts symbols, imports, calls, and assignments from
// Python sources, including relative/wildcard/aliased import forms and
// __all__ export lists.
type pythonAdapter struct{}

func (pythonAdapter) Language() Language { return LangPython }

func (pythonAdapter) Extract(result *ParseResult) (*FileInfo, error) {
	info := &FileInfo{}
	root := result.Tree.RootNode()
	src := result.Source

	var visit func(node *sitter.Node, caller, callerClass string, inBranch bool)
	visit = func(node *sitter.Node, caller, callerClass string, inBranch bool) {
		switch node.Type() {
		case "if_statement", "while_statement", "for_statement", "try_statement",
			"match_statement", "conditional_expression":
			inBranch = true
		}

		switch node.Type() {
		case "import_statement":
			info.Imports = append(info.Imports, pythonPlainImports(node, src)...)
			return

		case "import_from_statement":
			info.Imports = append(info.Imports, pythonFromImport(node, src))
			return

		case "function_definition":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			kind := KindFunction
			class := ""
			if callerClass != "" && caller == "" {
				// Directly inside a class body: a method.
				kind = KindMethod
				class = callerClass
			}
			info.Symbols = append(info.Symbols, SymbolInfo{
				Name:      name,
				Kind:      kind,
				Class:     class,
				Params:    pythonParams(node.ChildByFieldName("parameters"), src),
				StartLine: node.StartPoint().Row + 1,
				EndLine:   node.EndPoint().Row + 1,
				Exported:  !IsPrivateName(name),
			})
			if body := node.ChildByFieldName("body"); body != nil {
				for i := range int(body.ChildCount()) {
					visit(body.Child(i), name, callerClass, false)
				}
			}
			return

		case "class_definition":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			info.Symbols = append(info.Symbols, SymbolInfo{
				Name:      name,
				Kind:      KindClass,
				StartLine: node.StartPoint().Row + 1,
				EndLine:   node.EndPoint().Row + 1,
				Exported:  !IsPrivateName(name),
			})
			if body := node.ChildByFieldName("body"); body != nil {
				for i := range int(body.ChildCount()) {
					visit(body.Child(i), "", name, false)
				}
			}
			return

		case "assignment":
			left := node.ChildByFieldName("left")
			right := node.ChildByFieldName("right")
			target := GetNodeText(left, src)
			if target == "__all__" {
				info.Exports = pythonStringList(right, src)
			} else if left != nil && left.Type() == "identifier" {
				if caller == "" && callerClass == "" {
					info.Symbols = append(info.Symbols, SymbolInfo{
						Name:      target,
						Kind:      KindVariable,
						StartLine: node.StartPoint().Row + 1,
						EndLine:   node.EndPoint().Row + 1,
						Exported:  !IsPrivateName(target),
					})
				}
				info.Assignments = append(info.Assignments, Assignment{
					Target:      target,
					Value:       flattenExpr(right, src),
					Caller:      caller,
					CallerClass: callerClass,
					InBranch:    inBranch,
					Line:        node.StartPoint().Row + 1,
				})
			}

		case "call":
			fn := node.ChildByFieldName("function")
			args := node.ChildByFieldName("arguments")
			argc := 0
			if args != nil {
				for i := range int(args.ChildCount()) {
					if args.Child(i).IsNamed() {
						argc++
					}
				}
			}
			info.Calls = append(info.Calls, CallSite{
				Callee:      flattenExpr(fn, src),
				Caller:      caller,
				CallerClass: callerClass,
				Args:        argc,
				ArgText:     flattenExpr(args, src),
				InBranch:    inBranch,
				Line:        node.StartPoint().Row + 1,
			})
		}

		for i := range int(node.ChildCount()) {
			visit(node.Child(i), caller, callerClass, inBranch)
		}
	}

	visit(root, "", "", false)
	return info, nil
}

// pythonPlainImports handles "import a.b" and "import a.b as c" forms.
func pythonPlainImports(node *sitter.Node, src []byte) []ImportInfo {
	var imports []ImportInfo
	line := node.StartPoint().Row + 1

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			imports = append(imports, ImportInfo{
				Path: GetNodeText(child, src),
				Line: line,
			})
		case "aliased_import":
			imports = append(imports, ImportInfo{
				Path:  GetNodeText(child.ChildByFieldName("name"), src),
				Alias: GetNodeText(child.ChildByFieldName("alias"), src),
				Line:  line,
			})
		}
	}
	return imports
}

// pythonFromImport handles "from x import y", "from . import y",
// "from ..pkg import *", and aliased variants.
func pythonFromImport(node *sitter.Node, src []byte) ImportInfo {
	imp := ImportInfo{Line: node.StartPoint().Row + 1}

	if mod := node.ChildByFieldName("module_name"); mod != nil {
		if mod.Type() == "relative_import" {
			imp.Relative = true
			for i := range int(mod.ChildCount()) {
				child := mod.Child(i)
				switch child.Type() {
				case "import_prefix":
					imp.Dots = len(GetNodeText(child, src))
				case "dotted_name":
					imp.Path = GetNodeText(child, src)
				}
			}
		} else {
			imp.Path = GetNodeText(mod, src)
		}
	}

	sawImport := false
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "wildcard_import":
			imp.Wildcard = true
		case "dotted_name":
			if sawImport {
				imp.Names = append(imp.Names, GetNodeText(child, src))
			}
		case "aliased_import":
			name := GetNodeText(child.ChildByFieldName("name"), src)
			alias := GetNodeText(child.ChildByFieldName("alias"), src)
			if alias != "" {
				imp.Names = append(imp.Names, name+" as "+alias)
			} else {
				imp.Names = append(imp.Names, name)
			}
		}
	}
	return imp
}

// pythonParams extracts parameter names, skipping self and cls receivers.
func pythonParams(params *sitter.Node, src []byte) []string {
	if params == nil {
		return nil
	}
	var names []string
	for i := range int(params.ChildCount()) {
		child := params.Child(i)
		var name string
		switch child.Type() {
		case "identifier":
			name = GetNodeText(child, src)
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if n := child.ChildByFieldName("name"); n != nil {
				name = GetNodeText(n, src)
			} else {
				for j := range int(child.ChildCount()) {
					if child.Child(j).Type() == "identifier" {
						name = GetNodeText(child.Child(j), src)
						break
					}
				}
			}
		}
		if name != "" && name != "self" && name != "cls" {
			names = append(names, name)
		}
	}
	return names
}

// pythonStringList extracts string elements of a list literal.
func pythonStringList(node *sitter.Node, src []byte) []string {
	if node == nil {
		return nil
	}
	names := make([]string, 0, 4)
	Walk(node, src, func(n *sitter.Node, src []byte) bool {
		if n.Type() == "string" {
			names = append(names, unquote(GetNodeText(n, src)))
			return false
		}
		return true
	})
	return names
}

// flattenExpr renders an expression as compact text for matching. Attribute
// chains keep their dotted form; anything else is raw source with whitespace
// collapsed.
func flattenExpr(node *sitter.Node, src []byte) string {
	text := GetNodeText(node, src)
	return strings.Join(strings.Fields(text), "")
}
