// Package fiberexit defines an Analyzer that reports fiber entry
// functions that can return without calling Exit.
//
// Entry functions handed to fiber.New must terminate with Exit on
// their handle; one that returns instead faults at run time. The
// analysis is a conservative walk of the entry body: a path ends well
// if it reaches Exit, a panic, or runtime.Goexit before returning or
// falling off the end. Exit calls hidden behind helper functions are
// not visible to it, and a goto is followed only far enough to decide
// whether it can leave a loop, not to the code at its target.
package fiberexit

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

const fiberPackage = "github.com/loomkit/fiber"

var Analyzer = &analysis.Analyzer{
	Name:     "fiberexit",
	Doc:      "report fiber entries that can return without calling Exit",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	in := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	// Entries passed to New by name are checked through their
	// declarations; collect those first.
	decls := make(map[*types.Func]*ast.FuncDecl)
	in.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		decl := n.(*ast.FuncDecl)
		if fn, ok := pass.TypesInfo.Defs[decl.Name].(*types.Func); ok {
			decls[fn] = decl
		}
	})

	in.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		if !isNewFiber(pass.TypesInfo, call) || len(call.Args) < 1 {
			return
		}

		var body *ast.BlockStmt
		entry := astutil.Unparen(call.Args[0])
		switch entry := entry.(type) {
		case *ast.FuncLit:
			body = entry.Body
		case *ast.Ident:
			if fn, ok := pass.TypesInfo.Uses[entry].(*types.Func); ok {
				if decl := decls[fn]; decl != nil {
					body = decl.Body
				}
			}
		}
		if body == nil {
			return
		}

		if f := listFlow(pass.TypesInfo, body.List); f.fall || f.ret {
			pass.Reportf(entry.Pos(), "fiber entry can return without calling Exit")
		}
	})

	return nil, nil
}

// isNewFiber reports whether call invokes fiber.New, including through
// an explicit instantiation.
func isNewFiber(info *types.Info, call *ast.CallExpr) bool {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || fn.Name() != "New" {
		return false
	}
	pkg := fn.Pkg()
	return pkg != nil && pkg.Path() == fiberPackage
}

// flow is the conservative control-flow summary of a statement list:
// fall is set when control may reach the point after it, ret when a
// return statement may execute within it. An entry is correct only
// when neither holds for its body.
type flow struct {
	fall bool
	ret  bool
}

func listFlow(info *types.Info, list []ast.Stmt) flow {
	out := flow{fall: true}
	for _, stmt := range list {
		if !out.fall {
			// The rest of the list is unreachable.
			break
		}
		f := stmtFlow(info, stmt)
		out.fall = f.fall
		out.ret = out.ret || f.ret
	}
	return out
}

func stmtFlow(info *types.Info, stmt ast.Stmt) flow {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if callNeverReturns(info, s.X) {
			return flow{}
		}
		return flow{fall: true}
	case *ast.ReturnStmt:
		return flow{ret: true}
	case *ast.BlockStmt:
		return listFlow(info, s.List)
	case *ast.IfStmt:
		then := listFlow(info, s.Body.List)
		if s.Else == nil {
			return flow{fall: true, ret: then.ret}
		}
		els := stmtFlow(info, s.Else)
		return flow{fall: then.fall || els.fall, ret: then.ret || els.ret}
	case *ast.ForStmt:
		body := listFlow(info, s.Body.List)
		if s.Cond == nil && !hasLoopBreak(s.Body) && !hasEscapingGoto(s.Body) {
			return flow{ret: body.ret}
		}
		return flow{fall: true, ret: body.ret}
	case *ast.RangeStmt:
		body := listFlow(info, s.Body.List)
		return flow{fall: true, ret: body.ret}
	case *ast.SwitchStmt:
		return clausesFlow(info, s.Body, hasDefaultClause(s.Body))
	case *ast.TypeSwitchStmt:
		return clausesFlow(info, s.Body, hasDefaultClause(s.Body))
	case *ast.SelectStmt:
		if len(s.Body.List) == 0 {
			// An empty select blocks forever.
			return flow{}
		}
		// A select always enters one of its clauses.
		return clausesFlow(info, s.Body, true)
	case *ast.LabeledStmt:
		return stmtFlow(info, s.Stmt)
	case *ast.BranchStmt:
		// break, continue, goto: control moves, but stays inside the
		// function.
		return flow{fall: true}
	}
	return flow{fall: true}
}

func clausesFlow(info *types.Info, body *ast.BlockStmt, exhaustive bool) flow {
	out := flow{fall: !exhaustive}
	for _, clause := range body.List {
		var list []ast.Stmt
		switch c := clause.(type) {
		case *ast.CaseClause:
			list = c.Body
		case *ast.CommClause:
			list = c.Body
		default:
			continue
		}
		f := listFlow(info, list)
		out.fall = out.fall || f.fall
		out.ret = out.ret || f.ret
	}
	return out
}

func hasDefaultClause(body *ast.BlockStmt) bool {
	for _, clause := range body.List {
		if c, ok := clause.(*ast.CaseClause); ok && c.List == nil {
			return true
		}
	}
	return false
}

// hasLoopBreak reports whether body contains a break that can leave the
// enclosing loop. Unlabeled breaks inside nested loops, switches and
// selects bind to those statements; labeled breaks are assumed to
// target the loop.
func hasLoopBreak(body *ast.BlockStmt) bool {
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found || n == nil {
			return false
		}
		switch n := n.(type) {
		case *ast.BranchStmt:
			if n.Tok == token.BREAK {
				found = true
			}
			return false
		case *ast.FuncLit:
			return false
		case *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			ast.Inspect(n, func(m ast.Node) bool {
				switch m := m.(type) {
				case *ast.FuncLit:
					return false
				case *ast.BranchStmt:
					if m.Tok == token.BREAK && m.Label != nil {
						found = true
					}
				}
				return !found
			})
			return false
		}
		return true
	})
	return found
}

// hasEscapingGoto reports whether body contains a goto whose label is
// declared outside it. A goto cannot cross function boundaries, so
// function literals are opaque on both the goto and the label side.
func hasEscapingGoto(body *ast.BlockStmt) bool {
	labels := make(map[string]bool)
	var gotos []string
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.LabeledStmt:
			labels[n.Label.Name] = true
		case *ast.BranchStmt:
			if n.Tok == token.GOTO {
				gotos = append(gotos, n.Label.Name)
			}
		}
		return true
	})
	for _, label := range gotos {
		if !labels[label] {
			return true
		}
	}
	return false
}

// callNeverReturns reports whether expr is a call that never hands
// control back: Exit on a fiber handle, the panic builtin, or one of
// the runtime's terminating calls.
func callNeverReturns(info *types.Info, expr ast.Expr) bool {
	call, ok := astutil.Unparen(expr).(*ast.CallExpr)
	if !ok {
		return false
	}
	switch fun := astutil.Unparen(call.Fun).(type) {
	case *ast.Ident:
		if fun.Name == "panic" {
			_, ok := info.Uses[fun].(*types.Builtin)
			return ok
		}
	case *ast.SelectorExpr:
		if sel, ok := info.Selections[fun]; ok {
			return isFiberExit(sel)
		}
		if fn, ok := info.Uses[fun.Sel].(*types.Func); ok {
			switch fn.FullName() {
			case "runtime.Goexit", "os.Exit":
				return true
			}
		}
	}
	return false
}

// isFiberExit reports whether sel selects the Exit method of a fiber
// handle.
func isFiberExit(sel *types.Selection) bool {
	fn, ok := sel.Obj().(*types.Func)
	if !ok || fn.Name() != "Exit" {
		return false
	}
	recv := sel.Recv()
	if ptr, ok := recv.(*types.Pointer); ok {
		recv = ptr.Elem()
	}
	named, ok := recv.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Name() == "Fiber" && obj.Pkg() != nil && obj.Pkg().Path() == fiberPackage
}
