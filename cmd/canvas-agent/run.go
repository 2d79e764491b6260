package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/canvas-agent/pkg/events"
	"github.com/go-go-golems/canvas-agent/pkg/inference/graph"
	"github.com/go-go-golems/canvas-agent/pkg/state"
	"github.com/go-go-golems/canvas-agent/pkg/state/serde"
	"github.com/go-go-golems/canvas-agent/pkg/turns"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const runTopic = "run"

type runOptions struct {
	statePath   string
	message     string
	stream      bool
	format      string
	output      string
	transcript  bool
	interactive bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single turn against a state file and print the resulting state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := loadGraph()
			if err != nil {
				return err
			}
			st, err := loadRunState(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ask := opts.interactive || (isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()))

			var final *state.State
			for {
				if opts.stream {
					final, err = streamRun(ctx, g, st, opts.format, cmd.OutOrStdout())
				} else {
					final, err = g.Invoke(ctx, st)
				}
				if err != nil {
					return err
				}
				if final.Interrupt == nil || !ask {
					break
				}
				answer, err := askInterrupt(cmd.InOrStdin(), cmd.ErrOrStderr(), final.Interrupt)
				if err != nil {
					return err
				}
				resumeWith(final, answer)
				st = final
			}

			if opts.output != "" {
				if err := serde.SaveStateYAML(opts.output, final); err != nil {
					return err
				}
				log.Info().Str("path", opts.output).Msg("Saved final state")
			}
			if opts.stream {
				return nil
			}
			if opts.transcript {
				turns.FprintMessages(cmd.OutOrStdout(), final.Messages)
				return nil
			}
			b, err := serde.ToYAML(final)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.statePath, "state", "", "State file (YAML or JSON, optionally wrapped in {input: ...})")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Append a human message to the state before running")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print events while the graph runs instead of the final state")
	cmd.Flags().StringVar(&opts.format, "stream-format", "sse", "Event format when streaming (sse, steps)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Also write the final state to this YAML file")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "Ask for answers to awaiting_input questions and resume (default when attached to a terminal)")
	cmd.Flags().BoolVar(&opts.transcript, "transcript", false, "Print the final messages as a transcript instead of YAML")
	return cmd
}

func loadRunState(opts *runOptions) (*state.State, error) {
	st := state.New()
	if opts.statePath != "" {
		var err error
		st, err = serde.LoadState(opts.statePath)
		if err != nil {
			return nil, err
		}
	}
	if opts.message != "" {
		st.Messages = append(st.Messages, turns.NewHumanMessage(opts.message))
	}
	if len(st.Messages) == 0 {
		return nil, errors.New("nothing to run: pass --state with messages or --message")
	}
	return st, nil
}

// streamRun publishes graph events through an event router whose handler
// prints them to w.
func streamRun(ctx context.Context, g *graph.Graph, st *state.State, format string, w io.Writer) (*state.State, error) {
	var handler func(*message.Message) error
	switch format {
	case "sse":
		handler = events.SSEPrinterFunc(w)
	case "steps":
		handler = events.StepPrinterFunc(g.ID(), w)
	default:
		return nil, errors.Errorf("unknown stream format %q", format)
	}

	router, err := events.NewEventRouter(events.WithLogger(events.NewWatermillLogger(log.Logger)))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = router.Close()
	}()
	router.AddHandler(format, runTopic, handler)

	eg := errgroup.Group{}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})

	var final *state.State
	eg.Go(func() error {
		defer cancel()
		<-router.Running()

		var err error
		final, err = g.Stream(ctx, st, router.Sink(runTopic))
		if err != nil && format == "sse" {
			_, _ = w.Write(events.SSEErrorFrame(err))
		}
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return final, nil
}
