package catalog

import (
	"bufio"
	"bytes"
	"strings"
)

// iniSection returns the key/value pairs of one [section] of a .desktop or
// .dmrc style file. Later duplicates win; localized keys (Name[de]) are
// kept verbatim.
func iniSection(b []byte, section string) map[string]string {
	out := map[string]string{}
	s := bufio.NewScanner(bytes.NewReader(b))
	in := false
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			in = strings.TrimSpace(strings.Trim(line, "[]")) == section
			continue
		}
		if !in {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

type desktopEntry struct {
	Name      string
	Hidden    bool
	NoDisplay bool
}

func parseDesktopEntry(b []byte) desktopEntry {
	kv := iniSection(b, "Desktop Entry")
	return desktopEntry{
		Name:      kv["Name"],
		Hidden:    strings.EqualFold(kv["Hidden"], "true"),
		NoDisplay: strings.EqualFold(kv["NoDisplay"], "true"),
	}
}

func parseDmrcSession(b []byte) string {
	return iniSection(b, "Desktop")["Session"]
}
