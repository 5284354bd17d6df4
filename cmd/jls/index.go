package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"jls/internal/classpath"
)

var (
	indexClasspath string
	indexFormat    string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Decode the classpath and print the class index",
	Long: `Decode every class file on the classpath and print the resulting index.

By default the classpath is resolved from the workspace's build tool, the
same way the server does it at startup.

Examples:
  jls index
  jls index --classpath lib/a.jar:build/classes
  jls index --format yaml`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexClasspath, "classpath", "", "Classpath to index instead of the resolved one")
	indexCmd.Flags().StringVar(&indexFormat, "format", "human", "Output format (human, json, yaml)")
	rootCmd.AddCommand(indexCmd)
}

// IndexResponseCLI is the output of jls index
type IndexResponseCLI struct {
	Classpath string          `json:"classpath" yaml:"classpath"`
	Stats     classpath.Stats `json:"stats" yaml:"stats"`
	Classes   []ClassEntryCLI `json:"classes" yaml:"classes"`
}

// ClassEntryCLI is one indexed class
type ClassEntryCLI struct {
	Name    string   `json:"name" yaml:"name"`
	Methods []string `json:"methods" yaml:"methods"`
}

// Human renders the index one class per block.
func (r *IndexResponseCLI) Human() string {
	var b strings.Builder
	for _, c := range r.Classes {
		b.WriteString(c.Name)
		b.WriteByte('\n')
		for _, m := range c.Methods {
			b.WriteString("  ")
			b.WriteString(m)
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "\n%d classes from %d entries (%d missing, %d failed) in %s\n",
		r.Stats.Decoded, r.Stats.Entries, r.Stats.Missing, r.Stats.Failed, r.Stats.Duration)
	return b.String()
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	cp := indexClasspath
	indexer := classpath.NewIndexer(logger, classpath.Options{
		Workers:        result.Config.Index.Workers,
		ClassExtension: result.Config.Compiler.ClassExtension,
	})
	if !cmd.Flags().Changed("classpath") {
		ws, err := openWorkspace(cmd.Context(), root, result.Config, logger)
		if err != nil {
			return err
		}
		cp = ws.compiler.Classpath()
		indexer = ws.indexer
	}

	idx, stats := indexer.Index(cmd.Context(), cp)

	resp := &IndexResponseCLI{Classpath: cp, Stats: stats, Classes: make([]ClassEntryCLI, 0, len(idx))}
	for name, cd := range idx {
		entry := ClassEntryCLI{Name: name, Methods: make([]string, 0, len(cd.Methods))}
		for _, m := range cd.Methods {
			entry.Methods = append(entry.Methods, m.Signature())
		}
		resp.Classes = append(resp.Classes, entry)
	}
	sort.Slice(resp.Classes, func(i, j int) bool { return resp.Classes[i].Name < resp.Classes[j].Name })

	out, err := FormatResponse(resp, OutputFormat(indexFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
