package core

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// SafeRun calls fn and turns a panic into an error so a failing step cannot
// take the whole pipeline down. The stack is logged, not returned.
func SafeRun[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			LoggerFrom(ctx).Error("step panicked",
				zap.String("step", name),
				zap.Any("panic", r),
				zap.String("stack", stack),
			)
			var zero T
			out = zero
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()

	return fn(ctx)
}
