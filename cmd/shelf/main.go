package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
       _          _  __
   ___| |__   ___| |/ _|
  / __| '_ \ / _ \ |  _|
  \__ \ | | |  __/ | |
  |___/_| |_|\___|_|_|

  Markdown archive for web pages

  Usage: shelf <command> [options]
         shelf --help

  MCP server mode requires piped input.`)
}

func main() {
	args := os.Args
	if len(args) < 2 {
		// No args + interactive terminal → show banner and exit
		if isTerminal() {
			printBanner()
			return
		}
		// No args + piped stdin → MCP server
		args = append(args, "mcp")
	}

	app := newCLIApp(&runtime{stdout: os.Stdout, stderr: os.Stderr})
	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
