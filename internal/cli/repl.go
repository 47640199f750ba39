package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	List(ctx context.Context) error
	Post(ctx context.Context) error
	Comment(ctx context.Context, n int) error
	ShowComments(ctx context.Context, n int) error
	Edit(ctx context.Context, n int) error
	Delete(ctx context.Context, n int) error
	Avatar(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
}

// runREPL reads a line, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Command handlers report their own errors; the loop prints them and keeps
// going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("pf> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, post, comment N, comments N, edit N, delete N, avatar, whoami, logout, deleteaccount, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "post":
			err = a.Post(ctx)

		case "comment":
			err = withIndex(parts, func(n int) error { return a.Comment(ctx, n) })

		case "comments":
			err = withIndex(parts, func(n int) error { return a.ShowComments(ctx, n) })

		case "edit":
			err = withIndex(parts, func(n int) error { return a.Edit(ctx, n) })

		case "delete":
			err = withIndex(parts, func(n int) error { return a.Delete(ctx, n) })

		case "avatar":
			err = a.Avatar(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "deleteaccount":
			err = a.DeleteAccount(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}

func withIndex(parts []string, fn func(n int) error) error {
	if len(parts) < 2 {
		return fmt.Errorf("usage: %s N", parts[0])
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("%q is not a post number", parts[1])
	}
	return fn(n)
}
