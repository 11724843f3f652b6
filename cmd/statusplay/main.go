package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/statusplay/statusplay/internal/api"
	"github.com/statusplay/statusplay/internal/config"
	"github.com/statusplay/statusplay/internal/player/realtime"
	"github.com/statusplay/statusplay/internal/player/session"
	"github.com/statusplay/statusplay/internal/player/store"
	"github.com/statusplay/statusplay/internal/ui"
	"github.com/statusplay/statusplay/internal/utils/jwt"
)

func main() {
	configPath := flag.String("config", "", "path to viewer config")
	serverURL := flag.String("server", "", "status service base URL")
	token := flag.String("token", "", "bearer token")
	authorID := flag.String("author", "", "author whose status set to play")
	flag.Parse()

	cfg, err := config.LoadViewer(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *authorID != "" {
		cfg.AuthorID = *authorID
	}

	if cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "a bearer token is required (flag -token or config)")
		os.Exit(1)
	}
	if cfg.AuthorID == "" {
		fmt.Fprintln(os.Stderr, "an author is required (flag -author or config)")
		os.Exit(1)
	}

	viewerID, err := jwt.SubjectUnverified(cfg.Token)
	if err != nil {
		log.Fatal("Failed to read token subject:", err)
	}

	// The TUI owns the terminal; keep logs out of the way.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	client := api.NewHTTPClient(cfg.ServerURL, cfg.Token)
	wsURL := client.WebsocketURL()

	sess := session.New(session.Config{
		API:      client,
		AuthorID: cfg.AuthorID,
		ViewerID: viewerID,
		NewEvents: func(st *store.Store, onPostDeleted func(postID string), onChange func()) session.EventSource {
			return realtime.New(realtime.Config{
				URL:           wsURL,
				AuthorID:      cfg.AuthorID,
				Store:         st,
				Logger:        logger,
				OnPostDeleted: onPostDeleted,
				OnChange:      onChange,
			})
		},
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(ui.New(ui.Options{
		Context: ctx,
		Session: sess,
	}))
	if _, err := program.Run(); err != nil {
		log.Fatal("Failed to run viewer:", err)
	}

	sess.Close()
}
