// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"uidb/gateway/internal/bridge"
	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/logging"
	"uidb/gateway/internal/xdg"
)

const (
	shellPrompt     = "uidb> "
	shellContPrompt = " ...> "
)

var shellExecute string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive SQL shell against your database",
	Long: `Start an interactive SQL shell. Statements end with a semicolon and may span
several lines; several statements may be sent at once. Use -e to run SQL without
starting the shell.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, be bridge.Backend) error {
			s := &shellSession{be: be, principal: principal(), out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			if shellExecute != "" {
				return s.run(ctx, shellExecute)
			}
			return s.loop(ctx)
		})
	},
}

type shellSession struct {
	be        bridge.Backend
	principal string
	out       io.Writer
	errOut    io.Writer
}

func (s *shellSession) run(ctx context.Context, sqlText string) error {
	res, err := s.be.Dispatch(ctx, s.principal, gateway.Shell{SQL: sqlText})
	if err != nil {
		return err
	}
	return renderResult(s.out, res)
}

func (s *shellSession) report(err error) {
	_, _ = fmt.Fprintln(s.errOut, logging.FormatError(err))
}

func (s *shellSession) loop(ctx context.Context) error {
	historyFile := ""
	if dir, err := xdg.StateDir(); err == nil {
		historyFile = filepath.Join(dir, "shell_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    s.completer(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(s.out, "uidb shell (principal: %s)\n", s.principal)
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)

	return s.readLoop(ctx, rl)
}

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

func (s *shellSession) readLoop(ctx context.Context, rl lineReader) error {
	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(shellPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if s.dotCommand(ctx, line) {
				break
			}
			continue
		}

		// accumulate until the statement is terminated
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(shellContPrompt)
			continue
		}
		rl.SetPrompt(shellPrompt)

		sqlText := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()
		if err := s.run(ctx, sqlText); err != nil {
			s.report(err)
		}
		_, _ = fmt.Fprintln(s.out)
	}
	return nil
}

// dotCommand handles a shell command and reports whether the shell should exit.
func (s *shellSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printShellHelp(s.out)
	case ".tables":
		s.request(ctx, gateway.ListTables{})
	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .schema <table>")
			return false
		}
		s.request(ctx, gateway.DescribeAndPage{Table: parts[1], Page: 1, PageSize: 10})
	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")
	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func (s *shellSession) request(ctx context.Context, req gateway.Request) {
	res, err := s.be.Dispatch(ctx, s.principal, req)
	if err != nil {
		s.report(err)
		return
	}
	if err := renderResult(s.out, res); err != nil {
		s.report(err)
	}
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List all tables
  .schema <name>  Show columns and the first rows of a table
  .clear          Clear the screen
  .quit / .exit   Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Several statements separated by ; run in one round trip
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// completer offers table names and dot-commands. A failed listing only disables
// table completion.
func (s *shellSession) completer(ctx context.Context) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if res, err := s.be.Dispatch(ctx, s.principal, gateway.ListTables{}); err == nil {
		for _, t := range res.Tables {
			items = append(items, readline.PcItem(t))
		}
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
	)
	return readline.NewPrefixCompleter(items...)
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVarP(&shellExecute, "execute", "e", "", "run SQL and exit")
}
