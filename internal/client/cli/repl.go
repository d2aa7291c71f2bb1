package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

var errUsage = errors.New("wrong number of arguments")

// execIface is the command surface the REPL dispatches to. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	List(ctx context.Context, args []string) error
	ChangeDir(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Trash(ctx context.Context) error
	Move(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	Find(ctx context.Context, args []string) error
	MakeDir(ctx context.Context, args []string) error
	RemoveDir(ctx context.Context, args []string) error
	Usage(ctx context.Context) error
	Settings(ctx context.Context, args []string) error
	Cleanup(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: ls, cd, upload, download, rm, restore, trash, mv, rename, find, mkdir, rmdir, usage, settings, cleanup, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF or when the user types "exit" or "quit". Command errors
// are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("fv%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		if _, known := commands[cmd]; known {
			return errors.New("please log in first")
		}
		printlnFn("Unknown command:", cmd)
		return nil
	}

	run, ok := commands[cmd]
	if !ok {
		printlnFn("Unknown command:", cmd)
		return nil
	}
	return run(ctx, a, args)
}

var commands = map[string]func(context.Context, execIface, []string) error{
	"logout":   func(ctx context.Context, a execIface, _ []string) error { return a.Logout(ctx) },
	"ls":       func(ctx context.Context, a execIface, args []string) error { return a.List(ctx, args) },
	"cd":       func(ctx context.Context, a execIface, args []string) error { return a.ChangeDir(ctx, args) },
	"upload":   func(ctx context.Context, a execIface, args []string) error { return a.Upload(ctx, args) },
	"download": func(ctx context.Context, a execIface, args []string) error { return a.Download(ctx, args) },
	"rm":       func(ctx context.Context, a execIface, args []string) error { return a.Remove(ctx, args) },
	"restore":  func(ctx context.Context, a execIface, args []string) error { return a.Restore(ctx, args) },
	"trash":    func(ctx context.Context, a execIface, _ []string) error { return a.Trash(ctx) },
	"mv":       func(ctx context.Context, a execIface, args []string) error { return a.Move(ctx, args) },
	"rename":   func(ctx context.Context, a execIface, args []string) error { return a.Rename(ctx, args) },
	"find":     func(ctx context.Context, a execIface, args []string) error { return a.Find(ctx, args) },
	"mkdir":    func(ctx context.Context, a execIface, args []string) error { return a.MakeDir(ctx, args) },
	"rmdir":    func(ctx context.Context, a execIface, args []string) error { return a.RemoveDir(ctx, args) },
	"usage":    func(ctx context.Context, a execIface, _ []string) error { return a.Usage(ctx) },
	"settings": func(ctx context.Context, a execIface, args []string) error { return a.Settings(ctx, args) },
	"cleanup":  func(ctx context.Context, a execIface, _ []string) error { return a.Cleanup(ctx) },
}
