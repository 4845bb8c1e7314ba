// Package listing parses and formats the arguments of the list-posts query:
// an AIP-160 filter, an AIP-132 order_by and an opaque page token.
package listing

import (
	"fmt"
	"strings"

	"github.com/revittco/postdesk/internal/post"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// filterDeclarations returns the idents a list-posts filter may reference.
func filterDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("status", filtering.TypeString),
	)
}

type filterRequest string

func (r filterRequest) GetFilter() string { return string(r) }

// ParseFilter parses a list-posts filter. Only a single equality on status is
// supported; anything else is an error so callers can treat it as an
// unsupported shape.
func ParseFilter(s string) (post.StatusFilter, error) {
	if strings.TrimSpace(s) == "" {
		return post.FilterNone, nil
	}

	decls, err := filterDeclarations()
	if err != nil {
		return 0, fmt.Errorf("create declarations: %w", err)
	}
	f, err := filtering.ParseFilter(filterRequest(s), decls)
	if err != nil {
		return 0, fmt.Errorf("parse filter: %w", err)
	}
	if f.CheckedExpr == nil {
		return post.FilterNone, nil
	}

	value, err := statusEquality(f.CheckedExpr.GetExpr())
	if err != nil {
		return 0, err
	}
	switch value {
	case string(post.StatusPublished):
		return post.FilterPublished, nil
	case string(post.StatusUnpublished):
		return post.FilterUnpublished, nil
	case "BINNED":
		return post.FilterBinned, nil
	default:
		return 0, fmt.Errorf("unknown status %q", value)
	}
}

// FormatFilter returns the canonical filter string for f.
func FormatFilter(f post.StatusFilter) string {
	if f == post.FilterNone {
		return ""
	}
	return fmt.Sprintf("status = %q", f.String())
}

// statusEquality extracts the string literal from `status = "<value>"`.
func statusEquality(e *expr.Expr) (string, error) {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return "", fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	switch call.CallExpr.GetFunction() {
	case "=", "_==_":
	default:
		return "", fmt.Errorf("unsupported function: %s", call.CallExpr.GetFunction())
	}
	args := call.CallExpr.GetArgs()
	if len(args) != 2 {
		return "", fmt.Errorf("comparison requires 2 arguments")
	}

	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok || ident.IdentExpr.GetName() != "status" {
		return "", fmt.Errorf("expected status identifier")
	}
	lit, ok := args[1].GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return "", fmt.Errorf("expected constant, got %T", args[1].GetExprKind())
	}
	str, ok := lit.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return "", fmt.Errorf("expected string constant")
	}
	return str.StringValue, nil
}
