package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Executor executes the render loop one quantum at a time.
type Executor interface {
	Execute(context.Context) error
	Start(context.Context) error
	Flush(context.Context) error
}

// Run starts executor and calls Execute until it returns an error. io.EOF
// stops the loop without error. Flush is called if Start succeeded.
func Run(ctx context.Context, e Executor) (err error) {
	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("error starting sink: %w", err)
	}
	defer func() {
		if ferr := e.Flush(ctx); ferr != nil {
			err = errors.Join(err, fmt.Errorf("error flushing sink: %w", ferr))
		}
	}()

	for err == nil {
		err = e.Execute(ctx)
	}
	if err == io.EOF {
		return nil
	}
	return err
}
