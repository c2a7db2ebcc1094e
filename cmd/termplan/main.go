package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/config"
	"github.com/GriffinCanCode/termprov/internal/logging"
	"github.com/GriffinCanCode/termprov/internal/server"
	"github.com/GriffinCanCode/termprov/internal/terminal"
)

type envFlag map[string]string

func (e envFlag) String() string {
	pairs := make([]string, 0, len(e))
	for _, k := range terminal.SortedKeys(e) {
		pairs = append(pairs, k+"="+e[k])
	}
	return strings.Join(pairs, ",")
}

func (e envFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected KEY=VALUE, got %q", value)
	}
	e[key] = val
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "termplan:", err)
		}
		os.Exit(2)
	}
}

// run prints the launch plan for one request. Positional arguments make it a
// task request: the first is the command, the rest its arguments.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("termplan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "Shell directory or task cwd (default: active member)")
	label := fs.String("label", "", "Task label")
	verbose := fs.Bool("v", false, "Log lookups to stderr")
	workspace := fs.String("workspace", strings.Join(cfg.Terminal.Workspace, ","), "Comma-separated workspace member roots")
	fs.StringVar(&cfg.Terminal.Active, "active", cfg.Terminal.Active, "Root of the active workspace member")
	fs.StringVar(&cfg.Terminal.SettingsFile, "settings", cfg.Terminal.SettingsFile, "Global terminal settings file")
	fs.StringVar(&cfg.Terminal.Python, "python", cfg.Terminal.Python, "Python interpreter of the active member")
	fs.StringVar(&cfg.Remote.Host, "ssh-host", cfg.Remote.Host, "Remote project host")
	taskEnv := envFlag{}
	fs.Var(taskEnv, "env", "Task environment entry KEY=VALUE (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *workspace != "" {
		cfg.Terminal.Workspace = strings.Split(*workspace, ",")
	}

	logger := logging.NewNop()
	if *verbose {
		logger, err = logging.New(logging.Config{Level: "debug", Development: true, OutputPaths: []string{"stderr"}})
		if err != nil {
			return err
		}
	}
	defer logger.Sync()

	rt, err := server.Bootstrap(ctx, cfg, nil, nil, logger.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	req := terminal.ShellRequest(*dir)
	if fs.NArg() > 0 {
		req = terminal.TaskRequest(terminal.TaskSpec{
			ID:      "termplan",
			Label:   *label,
			Command: fs.Arg(0),
			Args:    fs.Args()[1:],
			Env:     taskEnv,
			Cwd:     *dir,
		})
	}

	plan, err := rt.Provisioner.Plan(ctx, req)
	if err != nil {
		return err
	}

	out, err := sonic.ConfigStd.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(out))
	return err
}
