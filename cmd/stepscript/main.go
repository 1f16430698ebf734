package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/stepscript/pkg/bridge"
	"github.com/ormasoftchile/stepscript/pkg/describe"
	"github.com/ormasoftchile/stepscript/pkg/providers"
	"github.com/ormasoftchile/stepscript/pkg/replay"
	engine "github.com/ormasoftchile/stepscript/pkg/runtime"
	"github.com/ormasoftchile/stepscript/pkg/schema"
	"github.com/ormasoftchile/stepscript/pkg/store"
	"github.com/ormasoftchile/stepscript/pkg/tui"
)

// Set at build time via ldflags.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stepscript",
	Short: "Declarative step-script execution engine",
	Long:  "stepscript — an interpreter for JSON/YAML step scripts driving guided, human-paced walkthroughs.",
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(validateCmd, runCmd, describeCmd, schemaCmd)

	runCmd.Flags().BoolVar(&runResume, "resume", false, "replay previously recorded answers instead of re-asking")
	runCmd.Flags().BoolVar(&runRestart, "restart", false, "clear saved run state before starting")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "run inside the interactive terminal UI")
	runCmd.Flags().StringArrayVar(&runVars, "vars", nil, "initial variable as name=value (repeatable)")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", engine.DefaultMaxSteps, "per-run step budget")
	runCmd.Flags().StringVar(&runStateDir, "state-dir", "", "directory for saved run state (default "+store.DefaultDir+")")

	describeCmd.Flags().StringVar(&describeOut, "out", "", "output file (default walkthrough-<script>.md next to the script)")
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [script.json|script.yaml]",
	Short: "Validate a step script against the schema and graph rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, errs := schema.ValidateFile(args[0])

	var fatal []*schema.ValidationError
	for _, e := range errs {
		if e.Severity == "warning" {
			fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "    at: %s\n", e.Path)
			}
			continue
		}
		fatal = append(fatal, e)
	}

	if len(fatal) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(fatal))
		for i, e := range fatal {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("script validation failed")
	}

	fmt.Printf("✓ %s is valid (%d steps)\n", args[0], len(s.Steps))
	return nil
}

// --- run ---

var (
	runResume   bool
	runRestart  bool
	runTUI      bool
	runVars     []string
	runMaxSteps int
	runStateDir string
)

var runCmd = &cobra.Command{
	Use:   "run [script.json|script.yaml]",
	Short: "Run a step script interactively",
	Long: `Execute a step script from its start step to termination.

Answers to prompt and choice steps are recorded after every run — success,
failure, or abort. Use --resume to replay them without re-asking, or
--restart to discard them and begin with a clean history.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]

	s, errs := schema.ValidateFile(path)
	if hasValidationErrors(errs) {
		return runValidate(cmd, args)
	}

	initialVars, err := parseVars(runVars)
	if err != nil {
		return err
	}

	scriptID := s.Name
	if scriptID == "" {
		scriptID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	st := store.New(runStateDir)
	if runRestart {
		if err := st.Clear(scriptID); err != nil {
			return err
		}
	}

	var seeded map[string]string
	if runResume {
		saved, err := st.Load(scriptID)
		if err != nil {
			return err
		}
		if err := replay.Resumable(saved, s); err != nil {
			return err
		}
		seeded = saved.Answers
		fmt.Printf("Resuming %s with %d recorded answer(s)\n", scriptID, len(seeded))
	}

	ctx := context.Background()
	var result *engine.RunnerResult
	var eng *engine.Engine
	var runErr error

	if runTUI {
		result, eng, runErr = runWithTUI(s, seeded, initialVars)
	} else {
		result, eng, runErr = runWithConsole(ctx, s, seeded, initialVars)
	}

	// Snapshot run state after every run, aborted ones included, so a later
	// --resume can replay the answers already given.
	if eng != nil {
		status, message := "aborted", ""
		if result != nil {
			status, message = result.Status, result.LastMessage
		} else if runErr != nil {
			message = runErr.Error()
		}
		snap := store.Snapshot(scriptID, s, eng.State, status, message)
		if err := st.Save(snap); err != nil {
			fmt.Fprintf(os.Stderr, "warning: save run state: %v\n", err)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "✗ run failed: %v\n", runErr)
		return fmt.Errorf("run failed")
	}

	printResult(result, eng)
	if result.Status != engine.StatusSuccess {
		return fmt.Errorf("run ended with status %s", result.Status)
	}
	return nil
}

func runWithConsole(ctx context.Context, s *schema.Script, seeded, initialVars map[string]string) (*engine.RunnerResult, *engine.Engine, error) {
	console, err := providers.NewConsole()
	if err != nil {
		return nil, nil, err
	}
	defer console.Close()

	hooks := console.Hooks()
	if seeded != nil {
		hooks = replay.WrapHooks(hooks, seeded)
	}

	eng, err := engine.NewEngineWithArtifacts(s, hooks, initialVars)
	if err != nil {
		return nil, nil, err
	}
	eng.MaxSteps = runMaxSteps

	result, err := eng.Run(ctx)
	return result, eng, err
}

func runWithTUI(s *schema.Script, seeded, initialVars map[string]string) (*engine.RunnerResult, *engine.Engine, error) {
	br := bridge.New()
	hooks := br.Bind(engine.Hooks{
		ExecCommand: providers.ExecCommandHook(),
		Evaluate:    providers.EvaluateHook(),
	})
	if seeded != nil {
		hooks = replay.WrapHooks(hooks, seeded)
	}

	eng, err := engine.NewEngineWithArtifacts(s, hooks, initialVars)
	if err != nil {
		return nil, nil, err
	}
	eng.MaxSteps = runMaxSteps

	result, err := tui.Run(eng, br)
	if errors.Is(err, context.Canceled) {
		return nil, eng, fmt.Errorf("run abandoned")
	}
	return result, eng, err
}

func printResult(result *engine.RunnerResult, eng *engine.Engine) {
	glyph := "✓"
	if result.Status != engine.StatusSuccess {
		glyph = "■"
	}
	fmt.Printf("\n%s run %s: %s (%d steps)\n", glyph, eng.GetRunID(), result.Status, result.StepsRun)
	if result.LastMessage != "" {
		fmt.Printf("  %s\n", result.LastMessage)
	}
	if eng.BaseDir != "" {
		fmt.Printf("  Artifacts: %s\n", eng.BaseDir)
	}
}

// --- describe ---

var describeOut string

var describeCmd = &cobra.Command{
	Use:   "describe [script.json|script.yaml]",
	Short: "Generate a step-by-step walkthrough document for a script",
	Long: `Analyze a script and produce a structured Markdown walkthrough with
step details, jump analysis, and a summary.

The walkthrough is generated from static analysis — no execution occurs.`,
	Args: cobra.ExactArgs(1),
	RunE: runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	path := args[0]

	s, errs := schema.ValidateFile(path)
	if hasValidationErrors(errs) {
		return runValidate(cmd, args)
	}

	outPath := describeOut
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		outPath = filepath.Join(filepath.Dir(path), "walkthrough-"+base+".md")
	}

	if err := os.WriteFile(outPath, []byte(describe.Markdown(s)), 0644); err != nil {
		return fmt.Errorf("write walkthrough: %w", err)
	}

	fmt.Printf("✓ Walkthrough generated: %s (%d steps)\n", outPath, len(s.Steps))
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export the step script JSON Schema (Draft 2020-12)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// --- helpers ---

func hasValidationErrors(errs []*schema.ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --vars %q: expected name=value", pair)
		}
		vars[k] = v
	}
	return vars, nil
}
