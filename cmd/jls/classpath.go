package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var classpathFormat string

var classpathCmd = &cobra.Command{
	Use:   "classpath",
	Short: "Print the detected project kind and resolved classpath",
	Long: `Detect the project kind from the build files in the workspace root and
ask the build tool for the classpath, exactly as the server does at startup.

Maven projects run 'mvn dependency:build-classpath', Gradle projects run a
generated init script, plain javac projects have an empty classpath.`,
	Args: cobra.NoArgs,
	RunE: runClasspath,
}

func init() {
	classpathCmd.Flags().StringVar(&classpathFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(classpathCmd)
}

// ClasspathResponseCLI is the output of jls classpath
type ClasspathResponseCLI struct {
	Root            string   `json:"root" yaml:"root"`
	Kind            string   `json:"kind" yaml:"kind"`
	Manifest        string   `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	OutputDirectory string   `json:"outputDirectory" yaml:"outputDirectory"`
	SourceRoots     []string `json:"sourceRoots" yaml:"sourceRoots"`
	Entries         []string `json:"entries" yaml:"entries"`
}

// Human renders the classpath one entry per line.
func (r *ClasspathResponseCLI) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project:  %s\n", r.Kind)
	if r.Manifest != "" {
		fmt.Fprintf(&b, "Manifest: %s\n", r.Manifest)
	}
	fmt.Fprintf(&b, "Output:   %s\n", r.OutputDirectory)
	fmt.Fprintf(&b, "Sources:  %s\n", strings.Join(r.SourceRoots, ", "))
	if len(r.Entries) == 0 {
		b.WriteString("Classpath: (empty)\n")
		return b.String()
	}
	b.WriteString("Classpath:\n")
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "  %s\n", e)
	}
	return b.String()
}

func splitClasspath(cp string) []string {
	entries := []string{}
	for _, e := range strings.Split(cp, string(os.PathListSeparator)) {
		if e = strings.TrimSpace(e); e != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func runClasspath(cmd *cobra.Command, args []string) error {
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

	resp := &ClasspathResponseCLI{
		Root:            root,
		Kind:            ws.kind.DisplayName(),
		Manifest:        ws.manifest,
		OutputDirectory: ws.compiler.OutputDirectory(),
		SourceRoots:     ws.compiler.SourceRoots(),
		Entries:         splitClasspath(ws.compiler.Classpath()),
	}
	out, err := FormatResponse(resp, OutputFormat(classpathFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
