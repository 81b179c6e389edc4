package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dagflow/dagflow/internal/backoff"
	"github.com/dagflow/dagflow/internal/block"
	"github.com/dagflow/dagflow/internal/graph"
	"github.com/dagflow/dagflow/internal/param"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <dag-key>",
		Short: "Run a registered dag to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := loadConfigAndLogger(cmd)
			if err != nil {
				return err
			}
			lib, err := loadLibrary()
			if err != nil {
				return err
			}
			d, err := lib.GetDag(args[0])
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			d.Logger = log

			if retries, _ := cmd.Flags().GetInt("retry"); retries > 0 {
				interval, _ := cmd.Flags().GetDuration("retry-interval")
				policy := backoff.NewExponentialBackoffPolicy(interval)
				policy.MaxRetries = retries
				d.UseExecutionContext(func() graph.ExecutionContext {
					return graph.NewRetryingContext(policy)
				})
			}

			return runDag(cmd.Context(), d, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	initCommonFlags(cmd, []commandLineFlag{logFormatFlag})
	cmd.Flags().Bool("debug", false, "enable debug logging")
	cmd.Flags().Int("retry", 0, "retry a block up to this many times after a transient failure (0 disables retries)")
	cmd.Flags().Duration("retry-interval", time.Second, "initial backoff interval between retries")
	return cmd
}

// runDag drives d to completion: Dag.Execute runs on one goroutine,
// supervised by an errgroup.Group alongside a second goroutine that
// calls Dag.Stop() on SIGINT/SIGTERM (spec.md §6, §5's "concurrency
// with a UI or main loop is achieved by running execute on a dedicated
// thread"). On each input-block pause it reads one line of JSON from
// stdin for the paused block's fields, then resumes via
// ExecuteAfterInput.
func runDag(ctx context.Context, d *graph.Dag, stdin io.Reader, stdout io.Writer) error {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		<-sigCtx.Done()
		d.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return drivePausesFromStdin(sigCtx, d, stdin, stdout)
	})
	return g.Wait()
}

func drivePausesFromStdin(ctx context.Context, d *graph.Dag, stdin io.Reader, stdout io.Writer) error {
	res, err := d.Execute(ctx)
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(stdin)
	for res.Paused != nil {
		paused := res.Paused
		fmt.Fprintf(stdout, "paused at %s: enter JSON for its fields\n", paused.Name)
		if !scanner.Scan() {
			return fmt.Errorf("run: stdin closed while %s was waiting for input", paused.Name)
		}
		var values map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &values); err != nil {
			return fmt.Errorf("run: parsing input for %s: %w", paused.Name, err)
		}
		if err := applyPausedInputs(paused, values); err != nil {
			return err
		}
		res, err = d.ExecuteAfterInput(ctx, paused)
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(stdout, "done")
	return nil
}

// applyPausedInputs installs values onto b's fields, first widening any
// JSON-decoded float64 back to int for int-typed Parameters: encoding/
// json has no int type when decoding into interface{}, but Parameter's
// type validation is strict about Go's numeric kinds.
func applyPausedInputs(b *block.Block, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	for name, v := range values {
		def, ok := b.Params.Def(name)
		if !ok {
			continue
		}
		if def.Type == param.TypeInt {
			if f, ok := v.(float64); ok {
				values[name] = int(f)
			}
		}
	}
	return b.Params.Update(values)
}
