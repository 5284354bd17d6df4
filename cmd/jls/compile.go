package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"jls/internal/compiler"
	"jls/internal/paths"
)

var (
	compileAll    bool
	compileFormat string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile stale sources and print diagnostics",
	Long: `Run one compile cycle: find sources whose class files are missing or
older than the source, compile them with the configured compiler and print
the reported errors.

Exits with a non-zero status when errors are reported.

Examples:
  jls compile
  jls compile --all
  jls compile --format json`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().BoolVar(&compileAll, "all", false, "Compile every source, not only stale ones")
	compileCmd.Flags().StringVar(&compileFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(compileCmd)
}

// CompileResponseCLI is the output of jls compile
type CompileResponseCLI struct {
	Files []CompileFileCLI `json:"files" yaml:"files"`
	Total int              `json:"total" yaml:"total"`
}

// CompileFileCLI holds the errors of one source file
type CompileFileCLI struct {
	Path   string                  `json:"path" yaml:"path"`
	Errors []compiler.CompileError `json:"errors" yaml:"errors"`
}

// Human renders errors as path:row:column: message lines.
func (r *CompileResponseCLI) Human() string {
	if r.Total == 0 {
		return "No errors.\n"
	}
	var b strings.Builder
	for _, f := range r.Files {
		for _, e := range f.Errors {
			fmt.Fprintf(&b, "%s:%d:%d: %s\n", f.Path, e.Row, e.Column, e.Message)
		}
	}
	fmt.Fprintf(&b, "\n%d errors in %d files\n", r.Total, len(r.Files))
	return b.String()
}

func newCompileResponse(diags compiler.Diagnostics) *CompileResponseCLI {
	resp := &CompileResponseCLI{Files: make([]CompileFileCLI, 0, len(diags)), Total: diags.Count()}
	for uri, errs := range diags {
		path, ok := paths.URIToPath(uri)
		if !ok {
			path = uri
		}
		resp.Files = append(resp.Files, CompileFileCLI{Path: path, Errors: errs})
	}
	sort.Slice(resp.Files, func(i, j int) bool { return resp.Files[i].Path < resp.Files[j].Path })
	return resp
}

func runCompile(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	result, err := loadConfig(root)
	if err != nil {
		return err
	}
	logger := commandLogger(cmd.ErrOrStderr(), result.Config)
	reportLoad(logger, result)

	ws, err := openWorkspace(cmd.Context(), root, result.Config, logger)
	if err != nil {
		return err
	}

	diags := ws.compiler.Compile(cmd.Context(), compileAll)
	if err := ws.compiler.LastError(); err != nil {
		return err
	}

	resp := newCompileResponse(diags)
	out, err := FormatResponse(resp, OutputFormat(compileFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if resp.Total > 0 {
		return fmt.Errorf("compilation reported %d errors", resp.Total)
	}
	return nil
}
