package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ryan-winkler/catch/internal/config"
	"github.com/ryan-winkler/catch/internal/prompt"
	"github.com/ryan-winkler/catch/internal/vault"
)

// errCaptureFailed is returned when a capture command produced an error message.
var errCaptureFailed = errors.New("capture failed")

func capture(e *env, text string, stdout io.Writer) error {
	s := e.store.Current()
	if !s.Configured() {
		e.logger.Warn("inbox folder not configured", "hint", "catch config set inboxFolder <folder>")
	}
	msg := e.writer.Capture(text, s.InboxFolder, s.Template)
	fmt.Fprintln(stdout, msg)
	if vault.IsError(msg) {
		return errCaptureFailed
	}
	return nil
}

func runPrompt(e *env, stdout io.Writer) error {
	title := "Catch"
	if folder := e.store.Current().InboxFolder; folder != "" {
		title = "Catch → " + folder
	}
	text, ok, err := prompt.Run(title)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return capture(e, text, stdout)
}

func runAdd(e *env, args []string, stdout io.Writer) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("usage: catch add <text...>")
	}
	return capture(e, text, stdout)
}

func runFolders(e *env, stdout io.Writer) error {
	folders, err := vault.Folders(e.cfg.VaultDir)
	if err != nil {
		return fmt.Errorf("list folders: %w", err)
	}
	current := e.store.Current().InboxFolder
	for _, f := range folders {
		mark := " "
		if f.Key == current || strings.TrimPrefix(f.Key, "/") == current {
			mark = "*"
		}
		fmt.Fprintf(stdout, "%s %-20s %s\n", mark, f.Key, f.Name)
	}
	return nil
}

func parseLimit(name string, args []string, fallback int) (int, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	n := fs.Int("n", fallback, "Maximum entries to show")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	return *n, nil
}

func runList(e *env, args []string, stdout io.Writer) error {
	limit, err := parseLimit("list", args, 20)
	if err != nil {
		return err
	}
	folder := e.store.Current().InboxFolder
	if folder == "" {
		return fmt.Errorf("list: %w", vault.ErrFolderNotConfigured)
	}
	entries, err := vault.Scan(e.cfg.VaultDir, folder, limit)
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Timestamp, entry.Name, preview(entry.Text, 40))
	}
	return tw.Flush()
}

func runLog(e *env, args []string, stdout io.Writer) error {
	limit, err := parseLimit("log", args, 20)
	if err != nil {
		return err
	}
	if e.journal == nil {
		return errors.New("capture journal not configured (set CATCH_JOURNAL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	entries, err := e.journal.Recent(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"), entry.Path, entry.Message)
	}
	return tw.Flush()
}

func runConfig(e *env, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"get"}
	}
	s := e.store.Current()

	switch args[0] {
	case "get":
		if len(args) > 1 {
			v, err := s.Get(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, v)
			return nil
		}
		for _, key := range config.Keys {
			v, _ := s.Get(key)
			fmt.Fprintf(stdout, "%s = %q\n", key, v)
		}
		fmt.Fprintf(stdout, "# %s\n", e.store.Path())
		return nil

	case "set":
		if len(args) != 3 {
			return errors.New("usage: catch config set <key> <value>")
		}
		next, err := s.Set(args[1], args[2])
		if err != nil {
			return err
		}
		if err := e.store.Save(next); err != nil {
			return err
		}
		e.logger.Info("settings saved", "key", args[1], "path", e.store.Path())
		fmt.Fprintf(stdout, "%s = %q\n", args[1], args[2])
		return nil
	}
	return fmt.Errorf("unknown config command: %s", args[0])
}

func preview(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= width {
		return text
	}
	return string(r[:width-1]) + "…"
}
