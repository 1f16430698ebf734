package runtime

import (
	"context"

	"github.com/ormasoftchile/stepscript/pkg/schema"
)

// RunScript is the one-call entry point: validate raw JSON input, then run
// it to termination with the supplied hooks. Initial variables merge over
// the script's declared vars. Validation failures return *schema.SchemaError
// or *schema.GraphIntegrityError before any step executes.
func RunScript(ctx context.Context, raw []byte, hooks Hooks, initialVars map[string]string) (*RunnerResult, error) {
	script, err := schema.Validate(raw)
	if err != nil {
		return nil, err
	}
	return NewEngine(script, hooks, initialVars).Run(ctx)
}
