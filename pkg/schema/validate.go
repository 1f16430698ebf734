package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, graph
	Path     string `json:"path"`  // JSON-path-like location (e.g., "steps[2].options[0].goto")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// SchemaError is raised when a script is structurally or semantically
// invalid: not parseable, missing required fields, unknown step type.
type SchemaError struct {
	Errors []*ValidationError
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("script schema invalid: %s", joinErrors(e.Errors))
}

// GraphIntegrityError is raised when step references do not resolve:
// duplicate ids, dangling goto/choice targets, or a missing start step.
type GraphIntegrityError struct {
	Errors []*ValidationError
}

func (e *GraphIntegrityError) Error() string {
	return fmt.Sprintf("script graph invalid: %s", joinErrors(e.Errors))
}

func joinErrors(errs []*ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate parses raw JSON input and runs the full validation pipeline.
// On success the returned script is safe for the engine to execute: every
// referenced step id resolves. Failures are *SchemaError (structural or
// semantic) or *GraphIntegrityError (referential).
func Validate(raw []byte) (*Script, error) {
	s, err := LoadBytes(raw)
	if err != nil {
		return nil, &SchemaError{Errors: []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}}
	}
	if err := ValidateScript(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateScript runs the semantic and graph phases on an already-parsed
// script. Purely functional: no side effects, no reachability errors.
func ValidateScript(s *Script) error {
	if errs := errorsOnly(validateSemantic(s)); len(errs) > 0 {
		return &SchemaError{Errors: errs}
	}
	if errs := errorsOnly(validateGraph(s)); len(errs) > 0 {
		return &GraphIntegrityError{Errors: errs}
	}
	return nil
}

// ValidateFile performs the full validation pipeline on a script file,
// returning every finding (warnings included) for CLI reporting.
// Phase 1: structural (strict decode)
// Phase 2: semantic (JSON Schema + per-type field rules)
// Phase 3: graph (referential integrity, unreachable-step warnings)
func ValidateFile(path string) (*Script, []*ValidationError) {
	s, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}

	var all []*ValidationError
	all = append(all, validateSemantic(s)...)
	all = append(all, validateGraph(s)...)
	return s, all
}

func errorsOnly(errs []*ValidationError) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Severity != "warning" {
			out = append(out, e)
		}
	}
	return out
}

// validateSemantic validates the script against the generated JSON Schema,
// then applies per-type field rules the flat schema cannot express.
func validateSemantic(s *Script) []*ValidationError {
	var errs []*ValidationError

	errs = append(errs, validateAgainstSchema(s)...)

	if len(s.Steps) == 0 {
		errs = append(errs, &ValidationError{
			Phase:    "semantic",
			Path:     "steps",
			Message:  "script must contain at least one step",
			Severity: "error",
		})
	}

	for i, st := range s.Steps {
		loc := fmt.Sprintf("steps[%d]", i)
		if st.ID == "" {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     loc + ".id",
				Message:  "step requires an id",
				Severity: "error",
			})
		}
		switch st.Type {
		case StepPrompt:
			if st.Message == "" {
				errs = append(errs, semErr(loc, "prompt step %q requires 'message'", st.ID))
			}
			if st.Variable == "" {
				errs = append(errs, semErr(loc, "prompt step %q requires 'variable'", st.ID))
			}
		case StepChoice:
			if st.Message == "" {
				errs = append(errs, semErr(loc, "choice step %q requires 'message'", st.ID))
			}
			if len(st.Options) == 0 {
				errs = append(errs, semErr(loc+".options", "choice step %q requires at least one option", st.ID))
			}
			for j, opt := range st.Options {
				if opt.ID == "" {
					errs = append(errs, semErr(fmt.Sprintf("%s.options[%d].id", loc, j), "choice step %q option requires an id", st.ID))
				}
				if opt.Goto == "" {
					errs = append(errs, semErr(fmt.Sprintf("%s.options[%d].goto", loc, j), "choice step %q option requires a goto target", st.ID))
				}
			}
		case StepCommand:
			if st.Command == "" {
				errs = append(errs, semErr(loc, "command step %q requires 'command'", st.ID))
			}
			if st.OnError != "" && st.OnError != OnErrorFail && st.OnError != OnErrorContinue {
				errs = append(errs, semErr(loc+".onError", "command step %q has invalid onError %q: must be fail or continue", st.ID, st.OnError))
			}
		case StepAssert:
			if st.Expression == "" {
				errs = append(errs, semErr(loc, "assert step %q requires 'expression'", st.ID))
			}
		case StepGoto:
			if st.Target == "" {
				errs = append(errs, semErr(loc, "goto step %q requires 'target'", st.ID))
			}
		case StepEnd:
			if st.Status != "" && st.Status != EndSuccess && st.Status != EndFailure && st.Status != EndCancel {
				errs = append(errs, semErr(loc+".status", "end step %q has invalid status %q: must be success, failure, or cancel", st.ID, st.Status))
			}
		case "":
			errs = append(errs, semErr(loc+".type", "step %q requires a type", st.ID))
		default:
			errs = append(errs, semErr(loc+".type", "step %q has unknown type %q", st.ID, st.Type))
		}
	}

	return errs
}

func semErr(path, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Phase:    "semantic",
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}
}

// validateAgainstSchema compiles the generated JSON Schema and applies it to
// the script document.
func validateAgainstSchema(s *Script) []*ValidationError {
	data, err := json.Marshal(s)
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("marshal for schema validation: %v", err),
			Severity: "error",
		}}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("generate schema: %v", err),
			Severity: "error",
		}}
	}

	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal schema: %v", err),
			Severity: "error",
		}}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("script-v0.json", schemaDoc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("add schema resource: %v", err),
			Severity: "error",
		}}
	}

	sch, err := c.Compile("script-v0.json")
	if err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("compile schema: %v", err),
			Severity: "error",
		}}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return []*ValidationError{{
			Phase:    "semantic",
			Message:  fmt.Sprintf("unmarshal document: %v", err),
			Severity: "error",
		}}
	}

	if err := sch.Validate(doc); err != nil {
		var errs []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, cause := range flattenValidationErrors(ve) {
				errs = append(errs, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(cause.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", cause.ErrorKind),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Message:  err.Error(),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// validateGraph enforces referential integrity: unique step ids, resolvable
// goto and choice targets, and an existing start step. Unreachable steps are
// reported as warnings only; cycle and liveness analysis is left to the
// runtime step budget.
func validateGraph(s *Script) []*ValidationError {
	var errs []*ValidationError

	seen := make(map[string]int)
	for i, st := range s.Steps {
		if st.ID == "" {
			continue // already reported by the semantic phase
		}
		if prev, ok := seen[st.ID]; ok {
			errs = append(errs, &ValidationError{
				Phase:    "graph",
				Path:     fmt.Sprintf("steps[%d].id", i),
				Message:  fmt.Sprintf("duplicate step id %q (first at steps[%d])", st.ID, prev),
				Severity: "error",
			})
			continue
		}
		seen[st.ID] = i
	}

	for i, st := range s.Steps {
		loc := fmt.Sprintf("steps[%d]", i)
		if st.Type == StepGoto && st.Target != "" {
			if _, ok := seen[st.Target]; !ok {
				errs = append(errs, &ValidationError{
					Phase:    "graph",
					Path:     loc + ".target",
					Message:  fmt.Sprintf("goto step %q references nonexistent step %q", st.ID, st.Target),
					Severity: "error",
				})
			}
		}
		for j, opt := range st.Options {
			if opt.Goto == "" {
				continue
			}
			if _, ok := seen[opt.Goto]; !ok {
				errs = append(errs, &ValidationError{
					Phase:    "graph",
					Path:     fmt.Sprintf("%s.options[%d].goto", loc, j),
					Message:  fmt.Sprintf("choice step %q option %q references nonexistent step %q", st.ID, opt.ID, opt.Goto),
					Severity: "error",
				})
			}
		}
	}

	if s.Start != "" {
		if _, ok := seen[s.Start]; !ok {
			errs = append(errs, &ValidationError{
				Phase:    "graph",
				Path:     "start",
				Message:  fmt.Sprintf("start references nonexistent step %q", s.Start),
				Severity: "error",
			})
		}
	}

	errs = append(errs, unreachableWarnings(s, seen)...)
	return errs
}

// unreachableWarnings walks the step graph from the start step and flags
// steps no path can reach. Warnings only: unreachable steps are permitted.
func unreachableWarnings(s *Script, index map[string]int) []*ValidationError {
	if len(s.Steps) == 0 {
		return nil
	}

	reached := make(map[int]bool)
	queue := []int{s.StartIndex()}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if i < 0 || i >= len(s.Steps) || reached[i] {
			continue
		}
		reached[i] = true

		st := s.Steps[i]

		// Sequential fall-through: every step except an unguarded goto or
		// end advances to the next array element. A when: guard can skip
		// any step, so guarded jumps fall through too.
		if (st.Type != StepGoto && st.Type != StepEnd && st.Type != StepChoice) || st.When != "" {
			queue = append(queue, i+1)
		}

		if st.Type == StepGoto {
			if j, ok := index[st.Target]; ok {
				queue = append(queue, j)
			}
		}
		for _, opt := range st.Options {
			if j, ok := index[opt.Goto]; ok {
				queue = append(queue, j)
			}
		}
	}

	var warns []*ValidationError
	for i, st := range s.Steps {
		if !reached[i] {
			warns = append(warns, &ValidationError{
				Phase:    "graph",
				Path:     fmt.Sprintf("steps[%d]", i),
				Message:  fmt.Sprintf("step %q is unreachable from the start step", st.ID),
				Severity: "warning",
			})
		}
	}
	return warns
}
