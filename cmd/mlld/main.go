// Command mlld is the evaluator-driving CLI host (spec §6 "CLI
// wrapper"), grounded on the teacher's cli/main.go: a cobra root
// command that reads source, wires the Capabilities collaborators
// against the real OS, and cancels the whole run on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mlld-lang/mlld-go/internal/adapter"
	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/eval"
	"github.com/mlld-lang/mlld-go/internal/fetch"
	"github.com/mlld-lang/mlld-go/internal/hostfs"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/resolver"
	"github.com/mlld-lang/mlld-go/internal/security"
)

func main() {
	var (
		file           string
		allowedDomains []string
		blockedDomains []string
		requireHTTPS   bool
		bypassCache    bool
		noColor        bool
	)

	rootCmd := &cobra.Command{
		Use:           "mlld [file]",
		Short:         "Evaluate an mlld document and print its rendered Markdown",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), path, iface.URLPolicy{
				AllowedDomains: allowedDomains,
				BlockedDomains: blockedDomains,
				RequireHTTPS:   requireHTTPS,
				BypassCache:    bypassCache,
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&file, "file", "f", "", "Path to the mlld document to evaluate (defaults to stdin)")
	rootCmd.PersistentFlags().StringSliceVar(&allowedDomains, "allow-domain", nil, "Domains permitted for /import and load-content URLs")
	rootCmd.PersistentFlags().StringSliceVar(&blockedDomains, "block-domain", nil, "Domains forbidden for /import and load-content URLs")
	rootCmd.PersistentFlags().BoolVar(&requireHTTPS, "require-https", true, "Require HTTPS for URL imports")
	rootCmd.PersistentFlags().BoolVar(&bypassCache, "no-cache", false, "Bypass the URL fetch cache")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	ctx, cancel := newCancellableContext()
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		FormatError(os.Stderr, err, !noColor)
		os.Exit(1)
	}
}

// newCancellableContext mirrors the teacher's cli/main.go signal
// wiring so Ctrl+C propagates through command/code execution instead
// of leaving an orphaned subprocess running.
func newCancellableContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func run(ctx context.Context, path string, policy iface.URLPolicy) error {
	source, basePath, err := readSource(path)
	if err != nil {
		return err
	}

	evaluator := eval.New()

	caps := &env.Capabilities{
		Filesystem: hostfs.FS{},
		Path:       hostfs.PathService{FS: hostfs.FS{}},
		Fetch:      fetch.New(),
		Resolvers:  resolver.NewManager(),
		Lock:       resolver.NewLockFile(),
		Hooks:      evaluator.Guards,
		URLPolicy:  policy,
		Executor:   adapter.New(),
	}
	root := env.NewRoot(caps)
	root.SetCurrentFilePath(basePath)
	root.SetStdinContent("", envMap())

	eval.SetImportDeps(&eval.ImportDeps{
		Parser:  literalParser{},
		Approve: &security.ApprovalGate{Cache: security.NewImmutableCache()},
		Policy:  policy,
	})

	nodes, err := literalParser{}.Parse(string(source))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	out, err := evaluator.EvaluateDocument(ctx, nodes, root)
	if err != nil {
		return err
	}
	_, err = io.WriteString(os.Stdout, out)
	return err
}

func readSource(path string) (content []byte, basePath string, err error) {
	if path == "" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		wd, _ := os.Getwd()
		return content, wd, nil
	}
	content, err = os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return content, abs, nil
}

func envMap() map[string]string {
	m := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			m[parts[0]] = parts[1]
		}
	}
	return m
}
