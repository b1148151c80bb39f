package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App implements
// it; tests use a recording stub.
type execIface interface {
	isLoggedIn() bool
	handleError(ctx context.Context, err error)

	Login(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	Resend(ctx context.Context) error
	Reset(ctx context.Context) error
	Logout(ctx context.Context) error

	Download(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error

	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Assign(ctx context.Context, args []string) error
	Unassign(ctx context.Context, args []string) error
	Answer(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Station(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, status, help, exit"
	helpLoggedIn  = "Available commands: verify [code], resend, reset, logout, download, sync, status, " +
		"(l)ist, show <id>, add, assign <id> <form>, unassign <id> <form>, answer <id> <form>, " +
		"note <id> [form], send <id>, station, help, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop ends on EOF, on "exit"/"quit" or when ctx is cancelled. Command
// errors go to a.handleError and never stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("cf %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "login":
			a.handleError(ctx, a.Login(ctx))
			continue
		case "status":
			a.handleError(ctx, a.Status(ctx))
			continue
		}

		if !a.isLoggedIn() {
			if isCommand(cmd) {
				printlnFn("Please log in first")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		var cmdErr error
		switch cmd {
		case "verify":
			cmdErr = a.Verify(ctx, args)
		case "resend":
			cmdErr = a.Resend(ctx)
		case "reset":
			cmdErr = a.Reset(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "download":
			cmdErr = a.Download(ctx)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "add":
			cmdErr = a.Add(ctx)
		case "assign":
			cmdErr = a.Assign(ctx, args)
		case "unassign":
			cmdErr = a.Unassign(ctx, args)
		case "answer":
			cmdErr = a.Answer(ctx, args)
		case "note":
			cmdErr = a.Note(ctx, args)
		case "send":
			cmdErr = a.Send(ctx, args)
		case "station":
			cmdErr = a.Station(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
		a.handleError(ctx, cmdErr)
	}
}

func isCommand(cmd string) bool {
	switch cmd {
	case "verify", "resend", "reset", "logout", "download", "sync", "l", "list", "show",
		"add", "assign", "unassign", "answer", "note", "send", "station":
		return true
	}
	return false
}
