package repl

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const historyLimit = 1000

// History keeps the shell's command lines, newest last, persisted
// under ~/.proctree/history between sessions.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory returns a History backed by the default file.
func NewHistory() *History {
	home, _ := os.UserHomeDir()
	return historyAt(filepath.Join(home, ".proctree", "history"))
}

func historyAt(path string) *History {
	return &History{maxSize: historyLimit, file: path}
}

// Add records a command line. Blank lines and immediate repeats of
// the previous line are dropped, so arrow-up spam does not fill the
// file.
func (h *History) Add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Get returns the entry index steps back from the newest; Get(0) is
// the most recent line. Out-of-range indexes return "".
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Len reports the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Load reads the history file, keeping at most the newest maxSize
// lines. A missing file is not an error.
func (h *History) Load() error {
	f, err := os.Open(h.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
	return nil
}

// Save writes the entries back, creating the directory on first use.
func (h *History) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.file), 0700); err != nil {
		return err
	}

	var sb strings.Builder
	for _, entry := range h.entries {
		sb.WriteString(entry)
		sb.WriteByte('\n')
	}
	return os.WriteFile(h.file, []byte(sb.String()), 0600)
}
