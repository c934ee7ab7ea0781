package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/robottwo/redline/internal/appupdate"
	"github.com/robottwo/redline/internal/client"
	"github.com/robottwo/redline/internal/completion"
	"github.com/robottwo/redline/internal/history"
	"github.com/robottwo/redline/internal/printer"
	"github.com/robottwo/redline/internal/styles"
	"github.com/robottwo/redline/pkg/lineedit"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const historyFetchLimit = 1024

// Repl drives the interactive session: it reads lines through the prompt
// editor, dispatches underscore builtins locally and sends everything else
// to the server.
type Repl struct {
	Client    *client.Client
	History   *history.Manager
	Provider  *completion.Provider
	Refresher *completion.Refresher
	Printer   *printer.Printer
	Checker   *appupdate.Checker
	Logger    *zap.Logger

	lastReply string
	hasReply  bool
}

// Run reads and executes commands until the user quits or input is
// exhausted. When stdin is not a terminal it switches to pipe mode and
// processes lines without the editor.
func (r *Repl) Run(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return r.runPipe(ctx)
	}
	return r.runInteractive(ctx)
}

func (r *Repl) runInteractive(ctx context.Context) error {
	chanSIGINT := make(chan os.Signal, 1)
	signal.Notify(chanSIGINT, os.Interrupt)
	defer signal.Stop(chanSIGINT)

	go func() {
		for {
			// ignore SIGINT outside of _monitor; the editor handles
			// Ctrl+C itself
			<-chanSIGINT
		}
	}()

	for {
		line, err := lineedit.ReadLine(lineedit.Options{
			Prompt:   r.Client.Addr() + "> ",
			Provider: r.Provider,
			History:  r.recentHistory(),
		})
		if err != nil {
			if errors.Is(err, lineedit.ErrInterrupted) {
				r.Logger.Debug("input interrupted by user")
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			r.Logger.Error("error reading input", zap.Error(err))
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.Logger.Debug("received command", zap.String("line", line))

		quit, err := r.dispatch(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (r *Repl) runPipe(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		quit, err := r.dispatch(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// dispatch runs one input line. It returns true when the session should
// end.
func (r *Repl) dispatch(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil
	case "_history":
		r.showHistory(fields[1:])
		return false, nil
	case "_copy":
		r.copyLastReply()
		return false, nil
	case "_refresh":
		r.Refresher.RefreshNow(ctx)
		fmt.Println(styles.Status.Render("completion metadata and keys refreshed"))
		return false, nil
	case "_monitor":
		return false, r.monitor(ctx)
	case "_update":
		r.update(ctx)
		return false, nil
	}
	if strings.HasPrefix(fields[0], "_") {
		fmt.Println(styles.Error.Render("unknown builtin: " + fields[0]))
		return false, nil
	}
	r.execute(ctx, line)
	return false, nil
}

func (r *Repl) execute(ctx context.Context, line string) {
	entry, err := r.History.Record(line, r.Client.Addr())
	if err != nil {
		r.Logger.Warn("error recording history entry", zap.Error(err))
	}

	args := completion.SplitArgs(line)
	reply, err := r.Client.Execute(ctx, args...)
	if err != nil {
		fmt.Println(styles.Error.Render("(connection) " + err.Error()))
		r.finishEntry(entry, false)
		return
	}

	r.Printer.Print(reply)
	r.lastReply = reply.String()
	r.hasReply = true
	r.finishEntry(entry, !reply.IsError())
}

func (r *Repl) finishEntry(entry *history.Entry, ok bool) {
	if entry == nil {
		return
	}
	if err := r.History.Finish(entry, ok); err != nil {
		r.Logger.Warn("error updating history entry", zap.Error(err))
	}
}

func (r *Repl) showHistory(args []string) {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Println(styles.Error.Render("usage: _history [count]"))
			return
		}
		limit = n
	}

	entries, err := r.History.Recent(r.Client.Addr(), limit)
	if err != nil {
		r.Logger.Warn("error loading history", zap.Error(err))
		fmt.Println(styles.Error.Render("could not load history: " + err.Error()))
		return
	}
	if len(entries) == 0 {
		fmt.Println(styles.Dim.Render("no history yet"))
		return
	}

	// oldest first reads naturally in a terminal
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		marker := " "
		if e.OK.Valid && !e.OK.Bool {
			marker = styles.Error.Render("!")
		}
		fmt.Printf("%s %s  %s\n", marker, styles.Dim.Render(humanize.Time(e.CreatedAt)), e.Command)
	}
}

func (r *Repl) copyLastReply() {
	if !r.hasReply {
		fmt.Println(styles.Dim.Render("nothing to copy yet"))
		return
	}
	if err := clipboard.WriteAll(r.lastReply); err != nil {
		r.Logger.Warn("error writing clipboard", zap.Error(err))
		fmt.Println(styles.Error.Render("could not copy: " + err.Error()))
		return
	}
	fmt.Println(styles.Status.Render("copied last reply to clipboard"))
}

func (r *Repl) monitor(ctx context.Context) error {
	fmt.Println(styles.Notice.Render("entering monitor mode, Ctrl+C to stop"))

	mctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	err := r.Client.Monitor(mctx, func(line string) {
		fmt.Println(line)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println(styles.Error.Render("(monitor) " + err.Error()))
		r.Logger.Warn("monitor stream ended", zap.Error(err))
	}
	fmt.Println(styles.Notice.Render("monitor stopped"))
	return nil
}

func (r *Repl) update(ctx context.Context) {
	if r.Checker == nil {
		fmt.Println(styles.Dim.Render("self-update is not configured"))
		return
	}
	fmt.Println(styles.Notice.Render("checking for updates..."))
	if err := r.Checker.Apply(ctx); err != nil {
		var noRelease *appupdate.NoReleaseError
		if errors.As(err, &noRelease) {
			fmt.Println(styles.Status.Render("already up to date"))
			return
		}
		r.Logger.Error("error applying update", zap.Error(err))
		fmt.Println(styles.Error.Render("update failed: " + err.Error()))
		return
	}
	fmt.Println(styles.Status.Render("updated; restart to use the new version"))
}

func (r *Repl) recentHistory() []lineedit.HistoryEntry {
	entries, err := r.History.Recent(r.Client.Addr(), historyFetchLimit)
	if err != nil {
		r.Logger.Warn("error loading recent history", zap.Error(err))
		return nil
	}
	items := make([]lineedit.HistoryEntry, len(entries))
	for i, e := range entries {
		items[i] = lineedit.HistoryEntry{Command: e.Command, When: e.CreatedAt}
	}
	return items
}
