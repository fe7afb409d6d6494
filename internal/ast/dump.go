package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented textual tree of n to w, in the spirit of the
// original implementation's ASTDumper visitor — reimplemented here as a
// plain recursive function with a tagged type switch rather than a visitor
// interface (spec §9).
func Dump(w io.Writer, n Node) {
	dump(w, n, 0)
}

func indent(w io.Writer, depth int) {
	io.WriteString(w, strings.Repeat("  ", depth))
}

func dump(w io.Writer, n Node, depth int) {
	if n == nil {
		indent(w, depth)
		fmt.Fprintln(w, "<nil>")
		return
	}
	indent(w, depth)
	switch v := n.(type) {
	case *Script:
		fmt.Fprintln(w, "Script")
		for _, d := range v.Body {
			dump(w, d, depth+1)
		}
	case *StmtDecl:
		dump(w, v.Stmt, depth)
	case *ImportDecl:
		fmt.Fprintf(w, "Import %s\n", v.Name.Name)
	case *ExportDecl:
		fmt.Fprintln(w, "Export")
		dump(w, v.Inner, depth+1)
	case *VarDecl:
		fmt.Fprintf(w, "VarDecl %s\n", v.Name.Name)
		if v.Value != nil {
			dump(w, v.Value, depth+1)
		}
	case *FunctionDecl:
		fmt.Fprintf(w, "FunctionDecl %s\n", v.Name.Name)
		dump(w, v.Body, depth+1)
	case *ClassDecl:
		fmt.Fprintf(w, "ClassDecl %s\n", v.Name.Name)
		for _, m := range v.Members {
			dump(w, m, depth+1)
		}
	case *TaskDecl:
		fmt.Fprintf(w, "TaskDecl %s\n", v.Name.Name)
		for _, m := range v.Members {
			dump(w, m, depth+1)
		}
	case *ClassMethodDecl:
		fmt.Fprintf(w, "Method %s\n", v.Name.Name)
		dump(w, v.Body, depth+1)
	case *ClassInitDecl:
		fmt.Fprintln(w, "Init")
		dump(w, v.Body, depth+1)
	case *ClassDeinitDecl:
		fmt.Fprintln(w, "Deinit")
		dump(w, v.Body, depth+1)
	case *ClassFieldDecl:
		fmt.Fprintf(w, "Field %s\n", v.Name.Name)
	case *ClassPropertyDecl:
		fmt.Fprintf(w, "Property %s\n", v.Name.Name)
		dump(w, v.Body, depth+1)
	case *TaskActionDecl:
		fmt.Fprintln(w, "TaskAction")
		dump(w, v.Body, depth+1)
	case *TaskInputsDecl:
		fmt.Fprintln(w, "TaskInputs")
		dump(w, v.Pattern, depth+1)
	case *TaskOutputsDecl:
		fmt.Fprintln(w, "TaskOutputs")
		dump(w, v.Pattern, depth+1)
	case *TaskPropertyDecl:
		fmt.Fprintf(w, "TaskProperty %s\n", v.Name.Name)
		dump(w, v.Value, depth+1)
	case *DeclStmt:
		dump(w, v.Decl, depth)
	case *BlockStmt:
		fmt.Fprintln(w, "Block")
		for _, s := range v.Body {
			dump(w, s, depth+1)
		}
	case *IfStmt:
		fmt.Fprintln(w, "If")
		dump(w, v.Cond, depth+1)
		dump(w, v.Then, depth+1)
		if v.Else != nil {
			dump(w, v.Else, depth+1)
		}
	case *MatchStmt:
		fmt.Fprintln(w, "Match")
		dump(w, v.Value, depth+1)
		for _, arm := range v.Arms {
			indent(w, depth+1)
			fmt.Fprintln(w, "Arm")
			for _, s := range arm.Body {
				dump(w, s, depth+2)
			}
		}
	case *ForStmt:
		fmt.Fprintf(w, "For %s\n", v.Var.Name)
		dump(w, v.Iterable, depth+1)
		dump(w, v.Body, depth+1)
	case *WhileStmt:
		fmt.Fprintln(w, "While")
		dump(w, v.Cond, depth+1)
		dump(w, v.Body, depth+1)
	case *WithStmt:
		fmt.Fprintf(w, "With as %s\n", v.Var.Name)
		dump(w, v.Resource, depth+1)
		dump(w, v.Body, depth+1)
	case *TryStmt:
		fmt.Fprintln(w, "Try")
		dump(w, v.Body, depth+1)
		for _, ex := range v.Excepts {
			dump(w, ex.Body, depth+1)
		}
		if v.Finally != nil {
			dump(w, v.Finally, depth+1)
		}
	case *BreakStmt:
		fmt.Fprintln(w, "Break")
	case *ContinueStmt:
		fmt.Fprintln(w, "Continue")
	case *ReturnStmt:
		fmt.Fprintln(w, "Return")
		if v.Value != nil {
			dump(w, v.Value, depth+1)
		}
	case *AssertStmt:
		fmt.Fprintln(w, "Assert")
		dump(w, v.Cond, depth+1)
	case *PassStmt:
		fmt.Fprintln(w, "Pass")
	case *AssignStmt:
		fmt.Fprintln(w, "Assign")
		dump(w, v.Target, depth+1)
		dump(w, v.Value, depth+1)
	case *ExprStmt:
		fmt.Fprintln(w, "ExprStmt")
		dump(w, v.Value, depth+1)
	case *LiteralExpr:
		fmt.Fprintf(w, "Literal %q\n", v.Image)
	case *VariableExpr:
		fmt.Fprintf(w, "Variable %s\n", v.Name.Name)
	case *SelfExpr:
		fmt.Fprintln(w, "Self")
	case *SuperExpr:
		fmt.Fprintln(w, "Super")
	case *BinaryExpr:
		fmt.Fprintln(w, "Binary")
		dump(w, v.LHS, depth+1)
		dump(w, v.RHS, depth+1)
	case *LogicalExpr:
		fmt.Fprintln(w, "Logical")
		dump(w, v.LHS, depth+1)
		dump(w, v.RHS, depth+1)
	case *UnaryExpr:
		fmt.Fprintln(w, "Unary")
		dump(w, v.Operand, depth+1)
	case *TernaryExpr:
		fmt.Fprintln(w, "Ternary")
		dump(w, v.Cond, depth+1)
		dump(w, v.Then, depth+1)
		dump(w, v.Else, depth+1)
	case *TypeTestExpr:
		fmt.Fprintf(w, "TypeTest %s\n", v.Type.Name)
		dump(w, v.Target, depth+1)
	case *ContainmentTestExpr:
		fmt.Fprintln(w, "ContainmentTest")
		dump(w, v.Value, depth+1)
		dump(w, v.Target, depth+1)
	case *InvocationExpr:
		fmt.Fprintln(w, "Invocation")
		dump(w, v.Callee, depth+1)
		for _, a := range v.Args {
			dump(w, a.Value, depth+1)
		}
	case *MemberAccessExpr:
		fmt.Fprintf(w, "Member .%s\n", v.Name.Name)
		dump(w, v.Target, depth+1)
	case *SubscriptExpr:
		fmt.Fprintln(w, "Subscript")
		dump(w, v.Target, depth+1)
		dump(w, v.Index, depth+1)
	case *ListExpr:
		fmt.Fprintln(w, "List")
		for _, e := range v.Elements {
			dump(w, e, depth+1)
		}
	case *MapExpr:
		fmt.Fprintln(w, "Map")
		for _, e := range v.Entries {
			dump(w, e.Key, depth+1)
			dump(w, e.Value, depth+1)
		}
	case *ClosureExpr:
		fmt.Fprintln(w, "Closure")
		for _, s := range v.Body {
			dump(w, s, depth+1)
		}
	case *DefinedExpr:
		fmt.Fprintf(w, "Defined %s\n", v.Name.Name)
	case *RaiseExpr:
		fmt.Fprintln(w, "Raise")
		dump(w, v.Value, depth+1)
	case *RangeExpr:
		fmt.Fprintln(w, "Range")
		dump(w, v.Begin, depth+1)
		dump(w, v.End, depth+1)
	case *InvalidDecl:
		fmt.Fprintln(w, "<invalid decl>")
	case *InvalidStmt:
		fmt.Fprintln(w, "<invalid stmt>")
	case *InvalidExpr:
		fmt.Fprintln(w, "<invalid expr>")
	default:
		fmt.Fprintf(w, "<unknown %T>\n", v)
	}
}
