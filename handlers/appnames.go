package handlers

import "strings"

// AppNameTable normalizes raw process names from window telemetry into
// display names. Constructed once and passed in; never ambient state.
type AppNameTable struct {
	byProcess map[string]string
}

func NewAppNameTable() *AppNameTable {
	return &AppNameTable{
		byProcess: map[string]string{
			"code":            "Visual Studio Code",
			"cursor":          "Cursor",
			"chrome":          "Google Chrome",
			"msedge":          "Microsoft Edge",
			"firefox":         "Firefox",
			"slack":           "Slack",
			"discord":         "Discord",
			"telegram":        "Telegram",
			"notion":          "Notion",
			"obsidian":        "Obsidian",
			"typora":          "Typora",
			"word":            "Microsoft Word",
			"winword":         "Microsoft Word",
			"excel":           "Microsoft Excel",
			"powerpnt":        "Microsoft PowerPoint",
			"outlook":         "Microsoft Outlook",
			"notepad":         "Notepad",
			"notepad++":       "Notepad++",
			"sublime_text":    "Sublime Text",
			"idea64":          "IntelliJ IDEA",
			"pycharm64":       "PyCharm",
			"webstorm64":      "WebStorm",
			"datagrip64":      "DataGrip",
			"explorer":        "File Explorer",
			"windowsterminal": "Windows Terminal",
			"cmd":             "Command Prompt",
			"powershell":      "PowerShell",
			"spotify":         "Spotify",
			"vlc":             "VLC",
			"potplayer":       "PotPlayer",
			"potplayer64":     "PotPlayer",
			"steam":           "Steam",
			"zoom":            "Zoom",
			"teams":           "Microsoft Teams",
		},
	}
}

// Friendly maps a raw process name like "chrome.exe" to a display name.
// Unknown processes keep their cleaned name, title-cased.
func (t *AppNameTable) Friendly(raw string) string {
	if raw == "" {
		return "Unknown"
	}

	clean := raw
	if strings.HasSuffix(strings.ToLower(clean), ".exe") {
		clean = clean[:len(clean)-4]
	}

	if name, ok := t.byProcess[strings.ToLower(clean)]; ok {
		return name
	}

	if clean == strings.ToLower(clean) {
		return titleCase(clean)
	}
	return clean
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
