// LLM Council - terminal client for the deliberation server
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/elazargur/llm-council/internal/client"
	"github.com/elazargur/llm-council/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		serverURL = flag.String("server", envOr("COUNCIL_SERVER_URL", "http://localhost:8080"), "council server base URL")
		logPath   = flag.String("log", envOr("COUNCIL_LOG_FILE", ""), "debug log file (logging is off when empty)")
	)
	flag.Parse()

	// The TUI owns the terminal, so logs go to a file or nowhere.
	logOut := io.Writer(io.Discard)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	c := client.New(*serverURL, logger)
	if password := os.Getenv("COUNCIL_PASSWORD"); password != "" {
		if email := os.Getenv("COUNCIL_EMAIL"); email != "" {
			c.SetCredential(password, email)
		}
	}

	p := tea.NewProgram(tui.New(c, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "council: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
