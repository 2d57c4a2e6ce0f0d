package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sudankdk/refix-sandbox/internal/model"
)

var (
	languageFlag string
	codeFlag     string
	testFlag     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one test file against one code file and print the verdict",
	Long: `Run a single test in a fresh sandbox and print the JSON result.

The process exits 0 on success, 1 when the tests failed and 2 on error.

Examples:
  refix-sandbox run --code add.py --test test_add.py
  refix-sandbox run --language typescript --code mul.ts --test mul.test.ts`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&languageFlag, "language", "python", "language of the code and test (python, javascript, typescript)")
	runCmd.Flags().StringVar(&codeFlag, "code", "", "file holding the code under test")
	runCmd.Flags().StringVar(&testFlag, "test", "", "file holding the test code")
	_ = runCmd.MarkFlagRequired("code")
	_ = runCmd.MarkFlagRequired("test")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	code, err := os.ReadFile(codeFlag)
	if err != nil {
		return fmt.Errorf("reading code: %w", err)
	}
	test, err := os.ReadFile(testFlag)
	if err != nil {
		return fmt.Errorf("reading test: %w", err)
	}

	ctx := context.Background()
	eng, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.exec.Run(ctx, model.ExecutionRequest{
		TestCode:      string(test),
		CodeUnderTest: string(code),
		Language:      languageFlag,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if status := result.ExitCode(); status != 0 {
		return exitError{code: status}
	}
	return nil
}
