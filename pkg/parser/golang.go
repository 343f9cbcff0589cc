package parser

import (
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// goAdapter extracts the uniform file model from Go sources. Export status
// follows the capitalization rule rather than underscore conventions.
type goAdapter struct{}

func (goAdapter) Language() Language { return LangGo }

func (goAdapter) Extract(result *ParseResult) (*FileInfo, error) {
	info := &FileInfo{}
	src := result.Source

	var visit func(node *sitter.Node, caller, callerClass string, inBranch bool)
	visit = func(node *sitter.Node, caller, callerClass string, inBranch bool) {
		switch node.Type() {
		case "if_statement", "for_statement", "expression_switch_statement",
			"type_switch_statement", "select_statement":
			inBranch = true
		}

		switch node.Type() {
		case "import_spec":
			imp := ImportInfo{Line: node.StartPoint().Row + 1}
			if path := node.ChildByFieldName("path"); path != nil {
				imp.Path = unquote(GetNodeText(path, src))
			}
			if name := node.ChildByFieldName("name"); name != nil {
				imp.Alias = GetNodeText(name, src)
			}
			info.Imports = append(info.Imports, imp)
			return

		case "function_declaration":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			info.Symbols = append(info.Symbols, SymbolInfo{
				Name:      name,
				Kind:      KindFunction,
				Params:    goParams(node.ChildByFieldName("parameters"), src),
				StartLine: node.StartPoint().Row + 1,
				EndLine:   node.EndPoint().Row + 1,
				Exported:  isGoExported(name),
			})
			if body := node.ChildByFieldName("body"); body != nil {
				visit(body, name, "", false)
			}
			return

		case "method_declaration":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			recv := goReceiverType(node.ChildByFieldName("receiver"), src)
			info.Symbols = append(info.Symbols, SymbolInfo{
				Name:      name,
				Kind:      KindMethod,
				Class:     recv,
				Params:    goParams(node.ChildByFieldName("parameters"), src),
				StartLine: node.StartPoint().Row + 1,
				EndLine:   node.EndPoint().Row + 1,
				Exported:  isGoExported(name),
			})
			if body := node.ChildByFieldName("body"); body != nil {
				visit(body, name, recv, false)
			}
			return

		case "type_spec":
			name := GetNodeText(node.ChildByFieldName("name"), src)
			info.Symbols = append(info.Symbols, SymbolInfo{
				Name:      name,
				Kind:      KindClass,
				StartLine: node.StartPoint().Row + 1,
				EndLine:   node.EndPoint().Row + 1,
				Exported:  isGoExported(name),
			})

		case "var_spec", "const_spec":
			if caller == "" {
				for i := range int(node.ChildCount()) {
					child := node.Child(i)
					if child.Type() == "identifier" {
						name := GetNodeText(child, src)
						info.Symbols = append(info.Symbols, SymbolInfo{
							Name:      name,
							Kind:      KindVariable,
							StartLine: node.StartPoint().Row + 1,
							EndLine:   node.EndPoint().Row + 1,
							Exported:  isGoExported(name),
						})
					}
				}
			}

		case "short_var_declaration", "assignment_statement":
			left := node.ChildByFieldName("left")
			right := node.ChildByFieldName("right")
			if left != nil && right != nil {
				info.Assignments = append(info.Assignments, Assignment{
					Target:   flattenExpr(left, src),
					Value:    flattenExpr(right, src),
					Caller:   caller,
					InBranch: inBranch,
					Line:     node.StartPoint().Row + 1,
				})
			}

		case "call_expression":
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

	visit(result.Tree.RootNode(), "", "", false)
	return info, nil
}

// goParams extracts parameter names from a parameter_list.
func goParams(list *sitter.Node, src []byte) []string {
	if list == nil {
		return nil
	}
	var names []string
	for i := range int(list.ChildCount()) {
		child := list.Child(i)
		if child.Type() != "parameter_declaration" && child.Type() != "variadic_parameter_declaration" {
			continue
		}
		for j := range int(child.ChildCount()) {
			if child.Child(j).Type() == "identifier" {
				names = append(names, GetNodeText(child.Child(j), src))
			}
		}
	}
	return names
}

// goReceiverType extracts the bare receiver type name from a method receiver.
func goReceiverType(recv *sitter.Node, src []byte) string {
	if recv == nil {
		return ""
	}
	name := ""
	Walk(recv, src, func(n *sitter.Node, src []byte) bool {
		if n.Type() == "type_identifier" {
			name = GetNodeText(n, src)
			return false
		}
		return true
	})
	return name
}

func isGoExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
