// Command codegame connects to CodeGame servers from the terminal.
//
// It wraps the client runtime in a small CLI: inspect a server, create a
// game, join or spectate one, restore a stored session, and list stored
// sessions. Received events are printed until the connection closes or the
// process is interrupted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/code-game-project/go-client/api"
	"github.com/code-game-project/go-client/cg"
	"github.com/code-game-project/go-client/session"
)

func main() {
	// Optional .env for CODEGAME_SERVER and friends.
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "codegame",
		Usage: "connect to CodeGame servers from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "server address, e.g. games.example.com:8080",
				Sources: cli.EnvVars("CODEGAME_SERVER"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "override the session storage directory",
				Sources: cli.EnvVars("CODEGAME_DATA_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "show name and protocol version of the server",
				Action: runInfo,
			},
			{
				Name:  "create",
				Usage: "create a new game",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "public", Usage: "list the game publicly"},
					&cli.BoolFlag{Name: "protected", Usage: "require a join secret"},
				},
				Action: runCreate,
			},
			{
				Name:      "join",
				Usage:     "join a game as a new player",
				ArgsUsage: "<game-id> <username>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "join-secret", Usage: "join secret of a protected game"},
					&cli.StringSliceFlag{Name: "on", Usage: "event names to print when received"},
				},
				Action: runJoin,
			},
			{
				Name:      "spectate",
				Usage:     "watch a game without playing",
				ArgsUsage: "<game-id>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "on", Usage: "event names to print when received"},
				},
				Action: runSpectate,
			},
			{
				Name:      "restore",
				Usage:     "reconnect with a stored session",
				ArgsUsage: "<username>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "on", Usage: "event names to print when received"},
				},
				Action: runRestore,
			},
			{
				Name:   "sessions",
				Usage:  "list stored sessions for the server",
				Action: runSessions,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cli.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if cmd.Bool("debug") {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func newClient(ctx context.Context, cmd *cli.Command) (*cg.Client, error) {
	server := cmd.String("server")
	if server == "" {
		return nil, fmt.Errorf("no server address; use --server or CODEGAME_SERVER")
	}

	opts := []cg.Option{cg.WithLogger(newLogger(cmd))}
	if dir := cmd.String("data-dir"); dir != "" {
		opts = append(opts, cg.WithSessionStore(session.NewStoreAt(dir)))
	}

	return cg.NewClient(ctx, server, opts...)
}

func runInfo(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	info := client.Info()
	fmt.Printf("Name:       %s\n", info.Name)
	fmt.Printf("CG version: %s\n", info.CGVersion)
	if info.DisplayName != "" {
		fmt.Printf("Display:    %s\n", info.DisplayName)
	}
	if info.Description != "" {
		fmt.Printf("About:      %s\n", info.Description)
	}
	if info.Version != "" {
		fmt.Printf("Version:    %s\n", info.Version)
	}
	if info.RepositoryURL != "" {
		fmt.Printf("Repository: %s\n", info.RepositoryURL)
	}
	return nil
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	gameID, joinSecret, err := client.API().CreateGame(ctx, cmd.Bool("public"), cmd.Bool("protected"), nil)
	if err != nil {
		return err
	}

	fmt.Printf("Game ID: %s\n", gameID)
	if joinSecret != "" {
		fmt.Printf("Join secret: %s\n", joinSecret)
	}
	return nil
}

func runJoin(ctx context.Context, cmd *cli.Command) error {
	gameID, username := cmd.Args().Get(0), cmd.Args().Get(1)
	if gameID == "" || username == "" {
		return fmt.Errorf("usage: codegame join <game-id> <username>")
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	printEvents(client, cmd.StringSlice("on"))
	if err := client.Join(ctx, gameID, username, cmd.String("join-secret")); err != nil {
		return err
	}

	fmt.Printf("Connected to game %s as %s\n", gameID, username)
	return waitForClose(ctx, client)
}

func runSpectate(ctx context.Context, cmd *cli.Command) error {
	gameID := cmd.Args().Get(0)
	if gameID == "" {
		return fmt.Errorf("usage: codegame spectate <game-id>")
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	printEvents(client, cmd.StringSlice("on"))
	if err := client.Spectate(ctx, gameID); err != nil {
		return err
	}

	fmt.Printf("Spectating game %s\n", gameID)
	return waitForClose(ctx, client)
}

func runRestore(ctx context.Context, cmd *cli.Command) error {
	username := cmd.Args().Get(0)
	if username == "" {
		return fmt.Errorf("usage: codegame restore <username>")
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	printEvents(client, cmd.StringSlice("on"))
	if err := client.RestoreSession(ctx, username); err != nil {
		return err
	}

	fmt.Printf("Reconnected to game %s as %s\n", client.Session().GameID, username)
	return waitForClose(ctx, client)
}

func runSessions(ctx context.Context, cmd *cli.Command) error {
	server := cmd.String("server")
	if server == "" {
		return fmt.Errorf("no server address; use --server or CODEGAME_SERVER")
	}

	var store *session.Store
	if dir := cmd.String("data-dir"); dir != "" {
		store = session.NewStoreAt(dir)
	} else {
		var err error
		store, err = session.NewStore()
		if err != nil {
			return err
		}
	}

	usernames, err := store.List(api.TrimAddress(server))
	if err != nil {
		return err
	}
	if len(usernames) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}
	for _, username := range usernames {
		fmt.Println(username)
	}
	return nil
}

// printEvents registers a printing callback for every requested event name.
func printEvents(client *cg.Client, events []string) {
	for _, name := range events {
		event := cg.EventName(name)
		cg.On(client, event, func(payload json.RawMessage) {
			fmt.Printf("[%s] %s\n", event, string(payload))
		})
	}
}

// waitForClose blocks until the connection ends or the context is
// canceled, then tears the client down.
func waitForClose(ctx context.Context, client *cg.Client) error {
	go func() {
		<-ctx.Done()
		client.Close()
	}()

	client.Wait()
	return client.Close()
}
