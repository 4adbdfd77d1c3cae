package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/quiz"
	"github.com/yedirenklicinar/akademi/core/session"
)

var readPasswordFunc = term.ReadPassword // mockable

type (
	// sessionController is the slice of the session controller the console
	// drives; it doubles as the attempt's identity source.
	sessionController interface {
		quiz.Identity
		Login(ctx context.Context, email, password string, rememberMe bool) error
		Logout(ctx context.Context) error
		RefreshSession(ctx context.Context) error
		Snapshot() session.Snapshot
	}

	// platformAPI is the read surface of the hosted platform the console needs.
	platformAPI interface {
		FetchTests(ctx context.Context) ([]exam.Test, error)
		FetchTest(ctx context.Context, id int) (exam.Test, error)
	}
)

type console struct {
	conf   *core.Config
	ctrl   sessionController
	api    platformAPI
	store  quiz.SubmissionStore
	logger core.Logger
	in     *bufio.Scanner
	out    io.Writer
}

func newConsole(conf *core.Config, ctrl sessionController, api platformAPI, store quiz.SubmissionStore, logger core.Logger, in io.Reader, out io.Writer) *console {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &console{
		conf:   conf,
		ctrl:   ctrl,
		api:    api,
		store:  store,
		logger: logger,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

func (c *console) run(ctx context.Context) error {
	c.printf("%s console (type \"help\" for commands)\n", c.conf.AppName)
	c.whoami()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := c.readLine("> ")
		if !ok {
			return c.in.Err()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			c.printHelp()
		case "login":
			c.login(ctx)
		case "logout":
			if err := c.ctrl.Logout(ctx); err != nil {
				c.printf("%v\n", err)
			} else {
				c.printf("signed out\n")
			}
		case "refresh":
			if err := c.ctrl.RefreshSession(ctx); err != nil {
				c.printf("%v\n", err)
			} else {
				c.printf("session refreshed\n")
			}
		case "whoami":
			c.whoami()
		case "tests":
			c.listTests(ctx)
		case "solve":
			if len(fields) < 2 {
				c.printf("usage: solve TEST_ID\n")
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				c.printf("usage: solve TEST_ID\n")
				continue
			}
			t, err := c.api.FetchTest(ctx, id)
			if err != nil {
				c.printf("loading test: %v\n", err)
				continue
			}
			if err := c.solve(ctx, t); err != nil {
				c.printf("%v\n", err)
			}
		case "quit", "exit":
			return nil
		default:
			c.printf("unknown command %q (type \"help\")\n", fields[0])
		}
	}
}

func (c *console) printHelp() {
	c.printf("  login         - sign in to the platform\n")
	c.printf("  logout        - sign out\n")
	c.printf("  whoami        - show the current session\n")
	c.printf("  refresh       - rotate the session token\n")
	c.printf("  tests         - list the tests available to you\n")
	c.printf("  solve TEST_ID - start a quiz attempt\n")
	c.printf("  quit          - leave\n")
}

func (c *console) login(ctx context.Context) {
	if snap := c.ctrl.Snapshot(); snap.User != nil {
		c.printf("already signed in as %s (logout first)\n", snap.User.Email)
		return
	}

	email, ok := c.readLine("email: ")
	if !ok {
		return
	}
	pwd, err := c.promptPassword()
	if err != nil {
		c.printf("reading password: %v\n", err)
		return
	}
	answer, _ := c.readLine("remember me? [y/N]: ")
	remember := strings.EqualFold(strings.TrimSpace(answer), "y")

	if err := c.ctrl.Login(ctx, email, pwd, remember); err != nil {
		c.printf("%v\n", err)
		return
	}
	c.whoami()
}

func (c *console) whoami() {
	snap := c.ctrl.Snapshot()
	switch {
	case snap.Loading:
		c.printf("session loading...\n")
	case snap.User == nil:
		c.printf("not signed in\n")
	case snap.Profile == nil:
		c.printf("signed in as %s (profile unavailable)\n", snap.User.Email)
	default:
		c.printf("signed in as %s (%s)\n", snap.Profile.FullName, snap.Role)
	}
}

func (c *console) listTests(ctx context.Context) {
	tests, err := c.api.FetchTests(ctx)
	if err != nil {
		c.printf("listing tests: %v\n", err)
		return
	}
	if len(tests) == 0 {
		c.printf("no tests available\n")
		return
	}
	for _, t := range tests {
		limit := "untimed"
		if t.DurationMinutes != nil {
			limit = fmt.Sprintf("%d min", *t.DurationMinutes)
		}
		c.printf("  #%d  %s  (%d questions, %s)\n", t.ID, t.Title, len(t.QuestionIDs), limit)
	}
}

func (c *console) promptPassword() (string, error) {
	fmt.Fprint(c.out, "password: ")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (c *console) readLine(prompt string) (string, bool) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}
