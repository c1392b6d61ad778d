package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/Sternrassler/rickmorty-client/pkg/viewstate"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const msgLoading = "Cargando personajes..."

type listOptions struct {
	limit      int
	yes        bool
	maxRetries int
}

// shownError is a failure whose message was already printed.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

// retryPrompt offers the retry action. With --yes it confirms on its own up
// to maxRetries times; otherwise it asks on in.
type retryPrompt struct {
	in      *bufio.Reader
	out     io.Writer
	opts    listOptions
	retries int
}

func newRetryPrompt(in io.Reader, out io.Writer, opts listOptions) *retryPrompt {
	return &retryPrompt{in: bufio.NewReader(in), out: out, opts: opts}
}

func (p *retryPrompt) confirm() bool {
	if p.opts.yes {
		if p.retries >= p.opts.maxRetries {
			return false
		}
		p.retries++
		fmt.Fprintf(p.out, "%s (%d/%d)\n", viewstate.MsgRetry, p.retries, p.opts.maxRetries)
		return true
	}

	fmt.Fprintf(p.out, "%s? [s/N]: ", viewstate.MsgRetry)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "si", "sí", "y", "yes":
		p.retries++
		return true
	default:
		return false
	}
}

func newListCmd(a *app) *cobra.Command {
	opts := listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List characters, loading pages as the list is read",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.limit <= 0 {
				return fmt.Errorf("limit must be > 0")
			}
			coord := viewstate.NewCoordinator(a.pagerFactory())
			defer coord.Close()
			return runList(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), coord, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "number of characters to show")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "retry failed loads without asking")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 3, "retries allowed with --yes")

	return cmd
}

// runList drives the coordinator until the first page resolves, then reads
// the collection item by item so that prefetch loads further pages.
func runList(ctx context.Context, in io.Reader, out io.Writer, coord *viewstate.Coordinator, opts listOptions) error {
	prompt := newRetryPrompt(in, out, opts)

	if err := coord.Start(ctx); err != nil {
		return err
	}

	for {
		state, err := awaitSettled(ctx, out, coord)
		if err != nil {
			return err
		}

		switch s := state.(type) {
		case viewstate.Loading:
			continue
		case viewstate.Error:
			fmt.Fprintln(out, s.Message)
			if !prompt.confirm() {
				return &shownError{err: s.Err}
			}
			if err := coord.Retry(ctx); err != nil {
				return err
			}
		case viewstate.Success:
			rows, err := scroll(ctx, out, coord.Pager(), opts, prompt)
			if err != nil {
				return err
			}
			renderTable(out, rows)
			return nil
		}
	}
}

// awaitSettled waits until the coordinator leaves the Loading state.
func awaitSettled(ctx context.Context, out io.Writer, coord *viewstate.Coordinator) (viewstate.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := coord.Updates(ctx)
	printed := false
	for {
		state := coord.State()
		if _, loading := state.(viewstate.Loading); !loading {
			return state, nil
		}
		if !printed {
			fmt.Fprintln(out, msgLoading)
			printed = true
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return nil, fmt.Errorf("coordinator closed")
			}
		}
	}
}

// scroll reads up to opts.limit items. Reading the last loaded item makes the
// pager prefetch the next page; scroll then waits for that load to settle.
func scroll(ctx context.Context, out io.Writer, pager *pagination.Pager[character.Character], opts listOptions, prompt *retryPrompt) ([]character.Character, error) {
	if pager == nil {
		return nil, fmt.Errorf("no active pager")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := pager.Updates(ctx)
	rows := make([]character.Character, 0, opts.limit)

	for len(rows) < opts.limit {
		if item, ok := pager.Get(len(rows)); ok {
			rows = append(rows, item)
			continue
		}

		snap, err := awaitAppend(ctx, pager, updates)
		if err != nil {
			return rows, err
		}

		switch {
		case snap.Len() > len(rows):
			continue
		case snap.LoadStates.Append.EndOfPagination:
			return rows, nil
		case snap.LoadStates.Append.IsError():
			msg, _ := viewstate.EdgeMessage(snap)
			fmt.Fprintln(out, msg)
			if !prompt.confirm() {
				return rows, nil
			}
			pager.Retry()
		default:
			return rows, nil
		}
	}

	return rows, nil
}

// awaitAppend returns the current snapshot once no append load is in flight.
// updates only serves as a wake-up signal.
func awaitAppend(ctx context.Context, pager *pagination.Pager[character.Character], updates <-chan pagination.Snapshot[character.Character]) (pagination.Snapshot[character.Character], error) {
	for {
		snap := pager.Snapshot()
		if !snap.LoadStates.Append.IsLoading() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case _, ok := <-updates:
			if !ok {
				return snap, fmt.Errorf("pager closed")
			}
		}
	}
}

func renderTable(out io.Writer, rows []character.Character) {
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Nombre", "Estado")
	for _, c := range rows {
		_ = table.Append([]string{strconv.Itoa(c.ID), c.Name, c.Status})
	}
	_ = table.Render()
}
