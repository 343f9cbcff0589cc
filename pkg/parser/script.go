package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// scriptAdapter extracts the uniform file model from JavaScript, TypeScript,
// and TSX sources. ES module imports, re-exports, and CommonJS require()
// calls all surface as ImportInfo records.
type scriptAdapter struct {
	lang Language
	src  []byte
}

func (a scriptAdapter) Language() Language { return a.lang }

func (a scriptAdapter) Extract(result *ParseResult) (*FileInfo, error) {
	info := &FileInfo{}
	src := result.Source
	a.src = src

	var visit func(node *sitter.Node, caller, callerClass string, exported, inBranch bool)
	visit = func(node *sitter.Node, caller, callerClass string, exported, inBranch bool) {
		switch node.Type() {
		case "if_statement", "while_statement", "for_statement", "for_in_statement",
			"switch_statement", "try_statement", "ternary_expression":
			inBranch = true
		}

		switch node.Type() {
		case "import_statement":
			info.Imports = append(info.Imports, scriptImport(node, src))
			return

		case "export_statement":
			if imp, ok := scriptReExport(node, src); ok {
				info.Imports = append(info.Imports, imp)
				return
			}
			// export <declaration>: descend with the exported flag set.
			for i := range int(node.ChildCount()) {
				visit(node.Child(i), caller, callerClass, true, inBranch)
			}
			return

		case "function_declaration", "generator_function_declaration":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			a.addSymbol(info, name, KindFunction, "", node, exported)
			if body := node.ChildByFieldName("body"); body != nil {
				visit(body, name, callerClass, false, false)
			}
			return

		case "class_declaration":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			a.addSymbol(info, name, KindClass, "", node, exported)
			if body := node.ChildByFieldName("body"); body != nil {
				for i := range int(body.ChildCount()) {
					member := body.Child(i)
					if member.Type() == "method_definition" {
						mname := GetNodeText(member.ChildByFieldName("name"), src)
						a.addSymbol(info, mname, KindMethod, name, member, exported)
						if mbody := member.ChildByFieldName("body"); mbody != nil {
							visit(mbody, mname, name, false, false)
						}
					}
				}
			}
			return

		case "variable_declarator":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			value := node.ChildByFieldName("value")
			if imp, ok := scriptRequire(value, src); ok {
				imp.Alias = name
				imp.Line = node.StartPoint().Row + 1
				info.Imports = append(info.Imports, imp)
				return
			}
			kind := KindVariable
			if value != nil {
				switch value.Type() {
				case "arrow_function", "function", "function_expression", "generator_function":
					kind = KindFunction
				}
			}
			if caller == "" && callerClass == "" {
				a.addSymbol(info, name, kind, "", node, exported)
			}
			if value != nil {
				nextCaller := caller
				if kind == KindFunction {
					nextCaller = name
				}
				info.Assignments = append(info.Assignments, Assignment{
					Target:      name,
					Value:       flattenExpr(value, src),
					Caller:      caller,
					CallerClass: callerClass,
					InBranch:    inBranch,
					Line:        node.StartPoint().Row + 1,
				})
				visit(value, nextCaller, callerClass, false, inBranch)
			}
			return

		case "assignment_expression":
			left := node.ChildByFieldName("left")
			right := node.ChildByFieldName("right")
			info.Assignments = append(info.Assignments, Assignment{
				Target:      flattenExpr(left, src),
				Value:       flattenExpr(right, src),
				Caller:      caller,
				CallerClass: callerClass,
				InBranch:    inBranch,
				Line:        node.StartPoint().Row + 1,
			})

		case "call_expression", "new_expression":
			fn := node.ChildByFieldName("function")
			if fn == nil {
				fn = node.ChildByFieldName("constructor")
			}
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
			visit(node.Child(i), caller, callerClass, false, inBranch)
		}
	}

	visit(result.Tree.RootNode(), "", "", false, false)
	return info, nil
}

func (a scriptAdapter) addSymbol(info *FileInfo, name string, kind SymbolKind, class string, node *sitter.Node, exported bool) {
	if name == "" {
		return
	}
	var params []string
	if kind == KindFunction || kind == KindMethod {
		params = a.params(node, info)
	}
	info.Symbols = append(info.Symbols, SymbolInfo{
		Name:      name,
		Kind:      kind,
		Class:     class,
		Params:    params,
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
		Exported:  exported || !IsPrivateName(name),
	})
	if exported && kind != KindMethod {
		info.Exports = append(info.Exports, name)
	}
}

// params extracts parameter names from a function-ish node. For a
// variable_declarator the parameters hang off the function value.
func (a scriptAdapter) params(node *sitter.Node, info *FileInfo) []string {
	fn := node
	if node.Type() == "variable_declarator" {
		fn = node.ChildByFieldName("value")
		if fn == nil {
			return nil
		}
	}
	list := fn.ChildByFieldName("parameters")
	if list == nil {
		// single-parameter arrow function without parentheses
		if p := fn.ChildByFieldName("parameter"); p != nil {
			return []string{GetNodeText(p, a.src)}
		}
		return nil
	}
	var names []string
	for i := range int(list.ChildCount()) {
		child := list.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, GetNodeText(child, a.src))
		case "required_parameter", "optional_parameter", "assignment_pattern":
			for j := range int(child.ChildCount()) {
				if child.Child(j).Type() == "identifier" {
					names = append(names, GetNodeText(child.Child(j), a.src))
					break
				}
			}
		}
	}
	return names
}

// scriptImport handles ES module import statements.
func scriptImport(node *sitter.Node, src []byte) ImportInfo {
	imp := ImportInfo{Line: node.StartPoint().Row + 1}
	if source := node.ChildByFieldName("source"); source != nil {
		imp.Path = unquote(GetNodeText(source, src))
	}
	imp.Relative = isRelativePath(imp.Path)

	Walk(node, src, func(n *sitter.Node, src []byte) bool {
		switch n.Type() {
		case "import_specifier":
			name := GetNodeText(n.ChildByFieldName("name"), src)
			if alias := GetNodeText(n.ChildByFieldName("alias"), src); alias != "" {
				imp.Names = append(imp.Names, name+" as "+alias)
			} else {
				imp.Names = append(imp.Names, name)
			}
			return false
		case "namespace_import":
			// import * as ns from 'm'
			imp.Wildcard = true
			for i := range int(n.ChildCount()) {
				if n.Child(i).Type() == "identifier" {
					imp.Alias = GetNodeText(n.Child(i), src)
				}
			}
			return false
		case "import_clause":
			// Default import: bare identifier directly under the clause.
			for i := range int(n.ChildCount()) {
				if n.Child(i).Type() == "identifier" {
					imp.Names = append(imp.Names, "default as "+GetNodeText(n.Child(i), src))
				}
			}
			return true
		}
		return true
	})
	return imp
}

// scriptReExport handles "export ... from 'm'" statements.
func scriptReExport(node *sitter.Node, src []byte) (ImportInfo, bool) {
	source := node.ChildByFieldName("source")
	if source == nil {
		return ImportInfo{}, false
	}

	imp := ImportInfo{
		Path:     unquote(GetNodeText(source, src)),
		ReExport: true,
		Line:     node.StartPoint().Row + 1,
	}
	imp.Relative = isRelativePath(imp.Path)

	Walk(node, src, func(n *sitter.Node, src []byte) bool {
		switch n.Type() {
		case "export_specifier":
			name := GetNodeText(n.ChildByFieldName("name"), src)
			if alias := GetNodeText(n.ChildByFieldName("alias"), src); alias != "" {
				imp.Names = append(imp.Names, name+" as "+alias)
			} else {
				imp.Names = append(imp.Names, name)
			}
			return false
		case "namespace_export":
			imp.Wildcard = true
			return false
		}
		if n.Type() == "*" {
			imp.Wildcard = true
		}
		return true
	})
	return imp, true
}

// scriptRequire recognizes require('m') call expressions.
func scriptRequire(node *sitter.Node, src []byte) (ImportInfo, bool) {
	if node == nil || node.Type() != "call_expression" {
		return ImportInfo{}, false
	}
	fn := node.ChildByFieldName("function")
	if fn == nil || GetNodeText(fn, src) != "require" {
		return ImportInfo{}, false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return ImportInfo{}, false
	}
	for i := range int(args.ChildCount()) {
		child := args.Child(i)
		if child.Type() == "string" {
			path := unquote(GetNodeText(child, src))
			return ImportInfo{Path: path, Relative: isRelativePath(path)}, true
		}
	}
	return ImportInfo{}, false
}

func isRelativePath(path string) bool {
	return len(path) > 0 && path[0] == '.'
}
