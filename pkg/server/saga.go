package server

import (
	"context"
	"fmt"

	"github.com/decred/slog"
)

// sagaStep is one action of a multi-step financial operation together with
// the action that reverses it.
type sagaStep struct {
	name string
	do   func(context.Context) error
	undo func(context.Context) error
}

// saga runs steps in order. When a step fails, the steps already done are
// undone in reverse order and the step's error is returned.
type saga struct {
	log   slog.Logger
	steps []sagaStep
}

func newSaga(log slog.Logger) *saga {
	return &saga{log: log}
}

func (sg *saga) add(name string, do, undo func(context.Context) error) *saga {
	sg.steps = append(sg.steps, sagaStep{name: name, do: do, undo: undo})
	return sg
}

func (sg *saga) run(ctx context.Context) error {
	for i, st := range sg.steps {
		err := st.do(ctx)
		if err == nil {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			undo := sg.steps[j]
			if undo.undo == nil {
				continue
			}
			if uerr := undo.undo(ctx); uerr != nil {
				sg.log.Errorf("Compensation %q failed: %v", undo.name, uerr)
			}
		}
		return fmt.Errorf("%s: %w", st.name, err)
	}
	return nil
}
