package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "lumen",
		Usage:  "Terminal client for the Notes API: write notes, attach images, browse your collection",
		Action: runTUI,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the notes API",
				Sources: cli.EnvVars("LUMEN_API_URL"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "Open the interactive notes UI",
				Action: runTUI,
			},
			{
				Name:   "list",
				Usage:  "List notes, most recently updated first",
				Action: withClient(listNotes),
			},
			{
				Name:      "show",
				Usage:     "Show one note",
				ArgsUsage: "<id>",
				Action:    withClient(showNote),
			},
			{
				Name:  "create",
				Usage: "Create a note",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Note title", Required: true},
					&cli.StringFlag{Name: "content", Usage: "Note content"},
				},
				Action: withClient(createNote),
			},
			{
				Name:      "update",
				Usage:     "Update a note; only the flags given are changed",
				ArgsUsage: "[--title T] [--content C] <id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "content", Usage: "New content"},
				},
				Action: withClient(updateNote),
			},
			{
				Name:      "delete",
				Usage:     "Delete a note and its images",
				ArgsUsage: "<id>",
				Action:    withClient(deleteNote),
			},
			{
				Name:  "image",
				Usage: "Manage note images",
				Commands: []*cli.Command{
					{
						Name:      "upload",
						Usage:     "Attach an image file to a note",
						ArgsUsage: "<note-id> <file>",
						Action:    withClient(uploadImage),
					},
					{
						Name:      "delete",
						Usage:     "Remove an image from a note",
						ArgsUsage: "<note-id> <image-key>",
						Action:    withClient(deleteImage),
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Check that the notes API is up",
				Action: withClient(health),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the notes tools over MCP on stdin/stdout",
				Action: runMCP,
			},
			{
				Name:  "fake-api",
				Usage: "Serve a local in-memory notes API",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Listen port"},
					&cli.StringFlag{Name: "data-dir", Usage: "Directory for image blobs"},
				},
				Action: runFakeAPI,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
