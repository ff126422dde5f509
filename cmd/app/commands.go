package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/lumen/internal"
	"github.com/starford/lumen/internal/gallery"
	"github.com/starford/lumen/internal/notes"
	pkgconfig "github.com/starford/lumen/pkg/config"
)

var errUsage = errors.New("wrong number of arguments")

// loadConfig reads the config file, when present, and applies flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("api-url") {
		cfg.API.BaseURL = cmd.String("api-url")
	}
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func printJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(stdout(cmd))
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func args(cmd *cli.Command, n int) ([]string, error) {
	if cmd.NArg() != n {
		return nil, fmt.Errorf("%s: %w: want %s", cmd.Name, errUsage, cmd.ArgsUsage)
	}
	return cmd.Args().Slice(), nil
}

type clientAction func(ctx context.Context, cmd *cli.Command, api notes.API) error

// withClient wraps a one-shot command: config, stderr logging and a client.
func withClient(fn clientAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, closer := internal.SetupLogging(cfg, false, stderr(cmd))
		defer closer.Close()

		c, err := internal.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, c)
	}
}

func listNotes(ctx context.Context, cmd *cli.Command, api notes.API) error {
	list, err := api.ListNotes(ctx)
	if err != nil {
		return err
	}
	notes.SortByUpdatedDesc(list)
	if list == nil {
		list = []notes.Note{}
	}
	return printJSON(cmd, list)
}

func showNote(ctx context.Context, cmd *cli.Command, api notes.API) error {
	a, err := args(cmd, 1)
	if err != nil {
		return err
	}
	n, err := api.GetNote(ctx, a[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, n)
}

func createNote(ctx context.Context, cmd *cli.Command, api notes.API) error {
	n, err := api.CreateNote(ctx, notes.NoteCreate{
		Title:   cmd.String("title"),
		Content: cmd.String("content"),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, n)
}

func updateNote(ctx context.Context, cmd *cli.Command, api notes.API) error {
	a, err := args(cmd, 1)
	if err != nil {
		return err
	}
	var in notes.NoteUpdate
	if cmd.IsSet("title") {
		v := cmd.String("title")
		in.Title = &v
	}
	if cmd.IsSet("content") {
		v := cmd.String("content")
		in.Content = &v
	}
	if in.Title == nil && in.Content == nil {
		return errors.New("update: nothing to change, pass --title and/or --content")
	}
	n, err := api.UpdateNote(ctx, a[0], in)
	if err != nil {
		return err
	}
	return printJSON(cmd, n)
}

func deleteNote(ctx context.Context, cmd *cli.Command, api notes.API) error {
	a, err := args(cmd, 1)
	if err != nil {
		return err
	}
	msg, err := api.DeleteNote(ctx, a[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, msg)
}

func uploadImage(ctx context.Context, cmd *cli.Command, api notes.API) error {
	a, err := args(cmd, 2)
	if err != nil {
		return err
	}
	file, err := gallery.ReadImageFile(a[1])
	if err != nil {
		return err
	}
	resp, err := api.UploadImage(ctx, a[0], file)
	if err != nil {
		return err
	}
	return printJSON(cmd, resp)
}

func deleteImage(ctx context.Context, cmd *cli.Command, api notes.API) error {
	a, err := args(cmd, 2)
	if err != nil {
		return err
	}
	msg, err := api.DeleteImage(ctx, a[0], a[1])
	if err != nil {
		return err
	}
	return printJSON(cmd, msg)
}

func health(ctx context.Context, cmd *cli.Command, api notes.API) error {
	h, err := api.Health(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, h)
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := internal.SetupLogging(cfg, true, stderr(cmd))
	defer closer.Close()

	if err := internal.RunTUI(ctx, internal.WithConfig(cfg), internal.WithLogger(logger)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := internal.SetupLogging(cfg, true, stderr(cmd))
	defer closer.Close()

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(logger)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runFakeAPI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.FakeAPI.HTTP.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("data-dir") {
		cfg.FakeAPI.DataDir = cmd.String("data-dir")
	}
	if err := cfg.FakeAPI.Validate(); err != nil {
		return fmt.Errorf("config validation failed: fake_api: %w", err)
	}

	logger, closer := internal.SetupLogging(cfg, false, stderr(cmd))
	defer closer.Close()
	logger.Debug("fake api starting", slog.Int("port", cfg.FakeAPI.HTTP.Port))

	if err := internal.ServeFakeAPI(ctx, internal.WithConfig(cfg), internal.WithLogger(logger)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}
