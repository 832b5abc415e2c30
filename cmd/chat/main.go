// Command chat is a line-based terminal client for the relay.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"api-chatbot/internal/chatclient"
	"api-chatbot/internal/models"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiCyan  = "\033[36m"
	ansiBlue  = "\033[34m"
	ansiGreen = "\033[32m"
)

var suggestions = []string{
	"What can you help me with?",
	"Tell me a fun fact",
	"Write a short poem",
}

func main() {
	server := flag.String("server", envOr("CHAT_SERVER_URL", "http://localhost:3000"), "relay base URL")
	prefsPath := flag.String("prefs", "", "preferences file (default: user config dir)")
	verbose := flag.Bool("v", false, "log client errors to stderr")
	flag.Parse()

	level := zerolog.Disabled
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	path := *prefsPath
	if path == "" {
		p, err := chatclient.DefaultPrefsPath()
		if err != nil {
			fatal(err)
		}
		path = p
	}

	prefs, err := chatclient.LoadPreferences(path)
	if err != nil {
		fatal(err)
	}

	session, err := chatclient.NewSession(chatclient.NewClient(*server, nil), prefs, logger)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ui := &terminal{out: os.Stdout, prefs: prefs, session: session}
	loadErr := session.Load(ctx)
	ui.banner()
	if loadErr != nil {
		fmt.Fprintln(ui.out, "Failed to fetch chat history.")
	} else {
		ui.printTranscript()
	}

	ui.run(ctx, os.Stdin)
}

type terminal struct {
	out     io.Writer
	prefs   *chatclient.Preferences
	session *chatclient.Session
}

func (t *terminal) banner() {
	fmt.Fprintf(t.out, "%sAI Assistant%s (you are %s)\n", ansiBold, ansiReset, t.session.UserID())
	fmt.Fprintln(t.out, "Commands: /clear, /theme light|dark, /history, /quit")
	if len(t.session.Messages()) == 0 {
		fmt.Fprintln(t.out, "Try one of:")
		for _, s := range suggestions {
			fmt.Fprintf(t.out, "  - %s\n", s)
		}
	}
}

func (t *terminal) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		t.prompt()
		if !scanner.Scan() {
			fmt.Fprintln(t.out)
			return
		}
		line := scanner.Text()

		switch cmd := strings.Fields(line); {
		case len(cmd) == 0:
			continue
		case cmd[0] == "/quit":
			return
		case cmd[0] == "/clear":
			if err := t.session.Clear(ctx); err != nil {
				fmt.Fprintln(t.out, t.session.LastError())
				continue
			}
			fmt.Fprintln(t.out, "Chat cleared.")
		case cmd[0] == "/history":
			if err := t.session.Load(ctx); err != nil {
				fmt.Fprintf(t.out, "Failed to fetch chat history: %v\n", err)
				continue
			}
			t.printTranscript()
		case cmd[0] == "/theme":
			theme := chatclient.ThemeDark
			if t.prefs.Theme() == chatclient.ThemeDark {
				theme = chatclient.ThemeLight
			}
			if len(cmd) > 1 {
				theme = cmd[1]
			}
			if err := t.prefs.SetTheme(theme); err != nil {
				fmt.Fprintln(t.out, err)
				continue
			}
			fmt.Fprintf(t.out, "Theme set to %s.\n", theme)
		default:
			reply, err := t.session.Send(ctx, line)
			if errors.Is(err, chatclient.ErrBusy) {
				fmt.Fprintln(t.out, "Still waiting for the previous reply.")
				continue
			}
			if reply.Text != "" {
				t.printMessage(reply)
			}
		}
	}
}

func (t *terminal) prompt() {
	color := ansiBlue
	if t.prefs.Theme() == chatclient.ThemeDark {
		color = ansiCyan
	}
	fmt.Fprintf(t.out, "%syou>%s ", color, ansiReset)
}

func (t *terminal) printTranscript() {
	for _, m := range t.session.Messages() {
		t.printMessage(m)
	}
}

func (t *terminal) printMessage(m models.Message) {
	if m.IsUser {
		fmt.Fprintf(t.out, "you: %s\n", m.Text)
		return
	}
	fmt.Fprintf(t.out, "%sbot:%s %s\n", ansiGreen, ansiReset, m.Text)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
