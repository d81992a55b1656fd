package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeRequest = "request-service"
	ModeRelay   = "relay-service"
	ModeTrack   = "track"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeRequest, "request", "rq":
		return ModeRequest, true
	case ModeRelay, "relay", "rl":
		return ModeRelay, true
	case ModeTrack, "tracker", "t":
		return ModeTrack, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `request-service --max-concurrent=100`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./zoomx --mode=<service> [flags]

Services (modes):
  request-service    HTTP API and system of record for ride requests
  relay-service      WebSocket relay broadcasting the live request board
  track              Follow one request's lifecycle from the terminal

Examples:
  ./zoomx --mode=request-service --max-concurrent=100
  ./zoomx --mode=relay-service --prefetch=20
  ./zoomx --mode=track --request-id=<uuid> --token=<jwt>`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./zoomx --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
