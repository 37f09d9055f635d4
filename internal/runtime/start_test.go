package runtime_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/graph/internal/runtime"
)

var errTest = errors.New("test error")

type executor struct {
	limit   int
	calls   int
	started bool
	flushed bool

	errorOnStart   error
	errorOnExecute error
	errorOnFlush   error
}

func (e *executor) Start(context.Context) error {
	e.started = true
	return e.errorOnStart
}

func (e *executor) Execute(context.Context) error {
	if e.errorOnExecute != nil {
		return e.errorOnExecute
	}
	if e.calls == e.limit {
		return io.EOF
	}
	e.calls++
	return nil
}

func (e *executor) Flush(context.Context) error {
	e.flushed = true
	return e.errorOnFlush
}

func TestRun(t *testing.T) {
	tests := []struct {
		description string
		executor    *executor
		err         error
		flushed     bool
	}{
		{
			description: "ok",
			executor:    &executor{limit: 10},
			flushed:     true,
		},
		{
			description: "start error",
			executor:    &executor{errorOnStart: errTest},
			err:         errTest,
		},
		{
			description: "execute error",
			executor:    &executor{errorOnExecute: errTest},
			err:         errTest,
			flushed:     true,
		},
		{
			description: "flush error",
			executor:    &executor{errorOnFlush: errTest},
			err:         errTest,
			flushed:     true,
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			err := runtime.Run(context.Background(), test.executor)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, test.executor.limit, test.executor.calls)
			}
			assert.True(t, test.executor.started)
			assert.Equal(t, test.flushed, test.executor.flushed)
		})
	}
}
