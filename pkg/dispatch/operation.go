package dispatch

import (
	"context"
	"fmt"

	"github.com/srodi/fanview/pkg/host"
)

// Kind identifies what an Operation does to a target.
type Kind int

const (
	KindNoop Kind = iota
	KindEval
	KindZoom
)

func (k Kind) String() string {
	switch k {
	case KindEval:
		return "eval"
	case KindZoom:
		return "zoom"
	default:
		return "noop"
	}
}

// Operation is one action applied to a target. Building one has no side effects.
type Operation struct {
	Kind   Kind
	Script string
	Factor float64
}

// Eval returns an operation that evaluates script in the target.
func Eval(script string) Operation {
	return Operation{Kind: KindEval, Script: script}
}

// Zoom returns an operation that sets the target's zoom factor.
func Zoom(factor float64) Operation {
	return Operation{Kind: KindZoom, Factor: factor}
}

// Noop returns an operation that does nothing.
func Noop() Operation {
	return Operation{}
}

// Apply runs the operation against t.
func (op Operation) Apply(ctx context.Context, t host.Target) error {
	switch op.Kind {
	case KindEval:
		if op.Script == "" {
			return nil
		}
		return t.Eval(ctx, op.Script)
	case KindZoom:
		return t.SetZoom(ctx, op.Factor)
	case KindNoop:
		return nil
	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
}
