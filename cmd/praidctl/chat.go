package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// chatREPL keeps one chat session going until EOF or /quit.
func chatREPL(ctx context.Context, c *console, sessionID string, useContext bool) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            titleStyle.Render("you") + " > ",
		InterruptPrompt:   "^C",
		EOFPrompt:         "",
		HistoryLimit:      512,
		HistorySearchFold: true,
		FuncIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		FuncGetWidth: terminalWidth,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintln(out, mutedStyle.Render("/context toggles search context, /new starts a session, /quit exits"))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		query := strings.TrimSpace(line)
		switch query {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			sessionID = ""
			fmt.Fprintln(out, mutedStyle.Render("new session"))
			continue
		case "/context":
			useContext = !useContext
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("search context %v", useContext)))
			continue
		}

		answer, err := askOnce(ctx, c, out, sessionID, query, useContext)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		sessionID = answer.SessionID
	}
}

// askOnce prints the answer as it streams in. Ctrl-C while waiting abandons the turn.
func askOnce(ctx context.Context, c *console, out io.Writer, sessionID, query string, useContext bool) (*chatAnswer, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprint(out, titleStyle.Render("assistant")+" > ")
	answer, err := c.ask(ctx, sessionID, query, useContext, func(chunk string) {
		fmt.Fprint(out, chunk)
	})
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out, mutedStyle.Render("sources: "+strings.Join(answer.Sources, ", ")))
	}
	return answer, nil
}
