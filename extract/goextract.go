package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// scanGo walks the AST of a Go file looking for calls to the marker
// function, either direct (__("key")) or through a selector (i18n.__("key")).
func (s *Scanner) scanGo(path string, src []byte) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, 0)
	if err != nil {
		return err
	}

	ast.Inspect(f, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}

		var funcName string
		switch fn := call.Fun.(type) {
		case *ast.Ident:
			funcName = fn.Name
		case *ast.SelectorExpr:
			funcName = fn.Sel.Name
		default:
			return true
		}
		if funcName != s.opts.FunctionName || len(call.Args) == 0 {
			return true
		}

		text, ok := stringFromExpr(call.Args[0])
		if !ok {
			return true
		}
		pos := fset.Position(call.Lparen)
		s.add(text, fmt.Sprintf("%s:%d", path, pos.Line))
		return true
	})

	return nil
}

// stringFromExpr extracts a string value from an AST expression.
// Handles string literals and simple concatenation (e.g. "foo" + "bar").
func stringFromExpr(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.STRING {
			return "", false
		}
		s, err := strconv.Unquote(e.Value)
		if err != nil {
			return "", false
		}
		return s, true
	case *ast.BinaryExpr:
		if e.Op != token.ADD {
			return "", false
		}
		left, ok := stringFromExpr(e.X)
		if !ok {
			return "", false
		}
		right, ok := stringFromExpr(e.Y)
		if !ok {
			return "", false
		}
		return left + right, true
	case *ast.ParenExpr:
		return stringFromExpr(e.X)
	}
	return "", false
}
