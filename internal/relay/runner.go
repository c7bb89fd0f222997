package relay

import "context"

// Runner executes the code submitted with a runCode request. The real
// execution sandbox is an external collaborator; the relay only forwards
// to whatever Runner it was given.
type Runner interface {
	Run(ctx context.Context, code string) (string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, code string) (string, error)

func (f RunnerFunc) Run(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

// stubRunner is the default: it never executes anything.
func stubRunner() Runner {
	return RunnerFunc(func(ctx context.Context, code string) (string, error) {
		return "code execution is not enabled on this relay", nil
	})
}
