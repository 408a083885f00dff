// Command concordia is the admin CLI: seeding, dumps, Excel import/export,
// one-off reports and API key hashing. It reads the same environment as the server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/concordia-classroom/concordia/config"
	"github.com/concordia-classroom/concordia/internal/app"
	"github.com/concordia-classroom/concordia/internal/application/command"
	"github.com/concordia-classroom/concordia/internal/application/query"
	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/internal/interface/http/handlers"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

const usage = `usage: concordia <command> [flags]

commands:
  seed                         replace the stored state with the demo data
  dump                         print the stored state as JSON
  export -class ID [-out F]    write the class workbook (.xlsx)
  import -class ID -file F     add students from the first column of a workbook
  report -student ID           generate a report and print it
  hash-key                     read an API key from stdin and print its bcrypt hash
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "concordia: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	name, rest := args[0], args[1:]
	if name == "hash-key" {
		return hashKey(stdin, stdout)
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cmd.flags(fs)
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	a, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, opts, stdout)
}

type options struct {
	classID   string
	studentID string
	file      string
	out       string
	timeout   time.Duration
}

type subcommand struct {
	flags func(fs *flag.FlagSet) *options
	run   func(ctx context.Context, a *app.App, o *options, stdout io.Writer) error
}

var commands = map[string]subcommand{
	"seed": {
		flags: noFlags,
		run: func(ctx context.Context, a *app.App, _ *options, stdout io.Writer) error {
			st, err := a.Store.Reset(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "seeded %d classes, %d students, %d lessons\n",
				len(st.Classes), len(st.Students), len(st.Schedule))
			return nil
		},
	},
	"dump": {
		flags: noFlags,
		run: func(ctx context.Context, a *app.App, _ *options, stdout io.Writer) error {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(a.Store.Load(ctx))
		},
	},
	"export": {
		flags: func(fs *flag.FlagSet) *options {
			o := &options{}
			fs.StringVar(&o.classID, "class", "", "class id")
			fs.StringVar(&o.out, "out", "", "output file (default: generated name in the working directory)")
			return o
		},
		run: func(ctx context.Context, a *app.App, o *options, stdout io.Writer) error {
			h := query.NewExportClassReportHandler(a.Store, timeutil.SystemClock)
			file, err := h.Handle(ctx, query.ExportClassReportQuery{ClassID: o.classID})
			if err != nil {
				return err
			}
			out := o.out
			if out == "" {
				out = filepath.Base(file.FileName)
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(stdout, out)
			return nil
		},
	},
	"import": {
		flags: func(fs *flag.FlagSet) *options {
			o := &options{}
			fs.StringVar(&o.classID, "class", "", "class id")
			fs.StringVar(&o.file, "file", "", "workbook (.xlsx)")
			return o
		},
		run: func(ctx context.Context, a *app.App, o *options, stdout io.Writer) error {
			if o.file == "" {
				return fmt.Errorf("%w: -file is required", errUsage)
			}
			f, err := os.Open(o.file)
			if err != nil {
				return err
			}
			defer f.Close()

			h := command.NewImportRosterHandler(a.Store, a.Log)
			res, err := h.Handle(ctx, command.ImportRosterCommand{ClassID: o.classID, File: f})
			if err != nil {
				return err
			}
			for _, s := range res.Students {
				fmt.Fprintf(stdout, "%s\t%s\n", s.ID, s.Name)
			}
			fmt.Fprintf(stdout, "imported %d, skipped %d\n", len(res.Students), res.Skipped)
			return nil
		},
	},
	"report": {
		flags: func(fs *flag.FlagSet) *options {
			o := &options{}
			fs.StringVar(&o.studentID, "student", "", "student id")
			fs.DurationVar(&o.timeout, "timeout", 2*time.Minute, "how long to wait for the model")
			return o
		},
		run: func(ctx context.Context, a *app.App, o *options, stdout io.Writer) error {
			handle, err := a.Reports.Request(ctx, o.studentID)
			if err != nil {
				return err
			}
			waitCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			rep, err := a.Reports.Wait(waitCtx, handle)
			if err != nil {
				return err
			}
			if rep.Status != report.StatusReady {
				return fmt.Errorf("report not ready: %s", rep.Status)
			}
			fmt.Fprintln(stdout, rep.Text)
			if rep.Outcome != report.OutcomeOK {
				return fmt.Errorf("report outcome: %s", rep.Outcome)
			}
			return nil
		},
	},
}

func noFlags(*flag.FlagSet) *options { return &options{} }

func hashKey(stdin io.Reader, stdout io.Writer) error {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return fmt.Errorf("%w: empty key", errUsage)
	}
	hash, err := handlers.HashKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}
