package main

//	@title						runstats API
//	@version					0.1.0
//	@description				Named running-statistics series with online summaries, merging and decay.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: "Bearer {token}"

import (
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/HerbHall/runstats/api/swagger"
	"github.com/HerbHall/runstats/internal/version"
)

const usage = `usage: runstats <command> [flags]

commands:
  serve       run the HTTP service (default)
  summarize   print running statistics for the given values
  ping        sample ICMP round-trip times to a host
  token       issue an API bearer token
  version     print version information
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	if err := run(cmd, args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "runstats %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "serve":
		return runServe(args)
	case "summarize":
		return runSummarize(args, stdout)
	case "ping":
		return runPing(args, stdout)
	case "token":
		return runToken(args, stdout)
	case "version":
		_, err := fmt.Fprintln(stdout, version.Info())
		return err
	case "help", "-h", "--help":
		_, err := fmt.Fprint(stdout, usage)
		return err
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}
