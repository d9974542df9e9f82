package expr

import (
	"fmt"
	"strings"
)

// Format renders e as an s-expression for logs and test failure
// output — a debug printer, not a wire encoding.
func (e *Expr) Format() string {
	switch e.kind {
	case KindIntConstant:
		return fmt.Sprintf("%d:i%d", e.intVal, e.width)
	case KindFloatConstant:
		if e.isNaN {
			return fmt.Sprintf("nan:%s", e.sem)
		}
		return fmt.Sprintf("%s:%s", e.floatVal.Text('g', -1), e.sem)
	case KindRead:
		return fmt.Sprintf("(Read %s)", e.kids[0].Format())
	case KindExtract:
		return fmt.Sprintf("(Extract %d %d %s)", e.offset, e.width, e.kids[0].Format())
	}
	n, _ := perKindArity(e.kind)
	parts := make([]string, 0, n+1)
	parts = append(parts, e.kind.String())
	for i := 0; i < n; i++ {
		parts = append(parts, e.kids[i].Format())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (e *Expr) String() string { return e.Format() }
