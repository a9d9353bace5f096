package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it; tests
// provide a lightweight stub.
type execIface interface {
	isAdmin() bool
	Pull(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Pending(ctx context.Context) error
	Push(ctx context.Context, args []string) error
	Validate(ctx context.Context, args []string) error
	Docs(ctx context.Context, args []string) error
	KPI(ctx context.Context, args []string) error
	Periods(ctx context.Context, args []string) error
	Criteria(ctx context.Context, args []string) error
	Analysis(ctx context.Context, args []string) error
	Scores(ctx context.Context) error
	Clients(ctx context.Context, args []string) error
	Assign(ctx context.Context, args []string) error
	Unassign(ctx context.Context, args []string) error
	AddClient(ctx context.Context) error
	AddUser(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	confirmExit(ctx context.Context) bool
}

const (
	helpCommon = "Available commands: pull, add [client], pending, push [ids|all], docs [key=value...], kpi [key=value...], periods [client] [D|W|M], criteria [client], analysis [client], scores, clients [type], whoami, exit"
	helpAdmin  = "Admin commands: validate <id> <status> [notes], assign <collaborator> <client-id>..., unassign <collaborator> <client-id>..., addclient, adduser"
)

// runREPL reads commands from reader until EOF or exit. The first token is
// the command and the rest are its arguments. Command errors are printed and
// the loop goes on, so a failed push can simply be retried. Prompts issued
// by commands read from the same reader.
//
// exit (or quit) asks confirmExit first, which refuses once while unpushed
// documents remain.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("docsync %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		err = nil
		switch cmd {
		case "help":
			printlnFn(helpCommon)
			if a.isAdmin() {
				printlnFn(helpAdmin)
			}
		case "pull":
			err = a.Pull(ctx)
		case "add":
			err = a.Add(ctx, args)
		case "pending":
			err = a.Pending(ctx)
		case "push":
			err = a.Push(ctx, args)
		case "validate":
			err = a.Validate(ctx, args)
		case "docs", "list":
			err = a.Docs(ctx, args)
		case "kpi":
			err = a.KPI(ctx, args)
		case "periods":
			err = a.Periods(ctx, args)
		case "criteria":
			err = a.Criteria(ctx, args)
		case "analysis":
			err = a.Analysis(ctx, args)
		case "scores":
			err = a.Scores(ctx)
		case "clients":
			err = a.Clients(ctx, args)
		case "assign":
			err = a.Assign(ctx, args)
		case "unassign":
			err = a.Unassign(ctx, args)
		case "addclient":
			err = a.AddClient(ctx)
		case "adduser":
			err = a.AddUser(ctx)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "exit", "quit":
			if a.confirmExit(ctx) {
				printlnFn("Bye!")
				return
			}
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("error:", err)
		}
	}
}
