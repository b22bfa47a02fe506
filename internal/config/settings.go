package config

import (
	"fmt"
	"strconv"
)

// DefaultPort is used whenever the configured port is not a number.
const DefaultPort = 8980

// Settings are the user-editable capture settings.
type Settings struct {
	Port        string `json:"port" yaml:"port"`
	InboxFolder string `json:"inboxFolder" yaml:"inboxFolder"`
	Webserver   bool   `json:"webserver" yaml:"webserver"`
	Template    string `json:"template" yaml:"template"`
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		Port:        strconv.Itoa(DefaultPort),
		InboxFolder: "",
		Webserver:   false,
		Template:    "",
	}
}

// Configured reports whether an inbox folder has been chosen.
func (s Settings) Configured() bool {
	return s.InboxFolder != ""
}

// Keys lists the setting names accepted by Set, in display order.
var Keys = []string{"port", "inboxFolder", "webserver", "template"}

// Get returns the string form of a single setting.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "port":
		return s.Port, nil
	case "inboxFolder":
		return s.InboxFolder, nil
	case "webserver":
		return strconv.FormatBool(s.Webserver), nil
	case "template":
		return s.Template, nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// Set returns a copy of s with key updated to value.
func (s Settings) Set(key, value string) (Settings, error) {
	switch key {
	case "port":
		s.Port = value
	case "inboxFolder":
		s.InboxFolder = value
	case "webserver":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("webserver: %q is not a boolean", value)
		}
		s.Webserver = b
	case "template":
		s.Template = value
	default:
		return s, fmt.Errorf("unknown setting %q", key)
	}
	return s, nil
}

// Change describes what differs between two settings snapshots.
type Change struct {
	WebserverToggled bool
	PortChanged      bool
	FolderChanged    bool
	TemplateChanged  bool
}

// Diff compares two settings snapshots field by field.
func Diff(before, after Settings) Change {
	return Change{
		WebserverToggled: before.Webserver != after.Webserver,
		PortChanged:      before.Port != after.Port,
		FolderChanged:    before.InboxFolder != after.InboxFolder,
		TemplateChanged:  before.Template != after.Template,
	}
}

// Any reports whether anything changed.
func (c Change) Any() bool {
	return c.WebserverToggled || c.PortChanged || c.FolderChanged || c.TemplateChanged
}
