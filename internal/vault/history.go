package vault

// Inbox listing: reads captured notes back for `catch list`, plus the folder
// choices offered by `catch folders`.

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Entry represents a single note in the inbox folder.
type Entry struct {
	// File is the absolute path to the note.
	File string `json:"file"`

	// Name is the filename without the .md extension (the caught text).
	Name string `json:"name"`

	// Text is a cleaned preview of the note body (after frontmatter).
	Text string `json:"text,omitempty"`

	// Timestamp is the ISO-8601 date from frontmatter, or file mod time.
	Timestamp string `json:"timestamp"`

	// Title from frontmatter, when the template carries one.
	Title string `json:"title,omitempty"`
}

// Folder is a destination the inbox can point at.
type Folder struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Folders lists the vault level plus every visible top-level directory of root.
func Folders(root string) ([]Folder, error) {
	folders := []Folder{{Key: "/", Name: "/ (vault-level)"}}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folders = append(folders, Folder{Key: "/" + e.Name(), Name: e.Name()})
	}
	return folders, nil
}

// Scan reads all .md files in the inbox folder under root and returns
// entries sorted by date (newest first). Returns at most maxEntries results.
// If the folder is empty or doesn't exist, returns nil without error.
func Scan(root, folder string, maxEntries int) ([]Entry, error) {
	if folder == "" {
		return nil, nil
	}

	dir := filepath.Join(root, strings.TrimLeft(filepath.FromSlash(folder), string(filepath.Separator)))
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		entry, err := parseNote(path)
		if err != nil {
			continue // Skip unreadable files
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	return entries, nil
}

// parseNote reads a single .md file. Frontmatter is optional:
//
//	---
//	title: Idea
//	date: 2026-02-21T11:44:58
//	---
//
//	Body text here.
func parseNote(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	entry := Entry{File: path, Name: strings.TrimSuffix(filepath.Base(path), ".md")}

	// 0=start of file, 1=in frontmatter, 2=body
	state := 0
	var bodyLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch state {
		case 0:
			if strings.TrimSpace(line) == "---" {
				state = 1
				continue
			}
			state = 2
			bodyLines = append(bodyLines, line)
		case 1:
			if strings.TrimSpace(line) == "---" {
				state = 2
				continue
			}
			if idx := strings.Index(line, ":"); idx > 0 {
				key := strings.TrimSpace(line[:idx])
				val := strings.TrimSpace(line[idx+1:])
				switch key {
				case "title":
					entry.Title = val
				case "date":
					entry.Timestamp = val
				}
			}
		case 2:
			bodyLines = append(bodyLines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return Entry{}, err
	}

	entry.Text = truncate(cleanMarkdown(strings.Join(bodyLines, "\n")), previewLen)

	if entry.Timestamp == "" {
		if info, err := os.Stat(path); err == nil {
			entry.Timestamp = info.ModTime().Format(time.RFC3339)
		}
	}
	entry.Timestamp = normalizeTimestamp(entry.Timestamp)

	return entry, nil
}

// previewLen caps Entry.Text, in bytes.
const previewLen = 200

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// cleanMarkdown strips markdown formatting for a one-line preview.
// Removes headers (#), horizontal rules (---), blockquotes (>), list bullets,
// and collapses whitespace.
func cleanMarkdown(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
		trimmed = strings.TrimPrefix(trimmed, "> ")
		trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "-*"))
		if trimmed == "" {
			continue
		}
		lines = append(lines, trimmed)
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

// normalizeTimestamp converts various date formats to ISO-8601.
func normalizeTimestamp(ts string) string {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return ts
}
