package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// browserModel lists directories and MIDI files to pick a score from.
type browserModel struct {
	currentDir  string
	files       []fileInfo
	cursor      int
	viewportTop int
	message     string
}

type fileInfo struct {
	name  string
	path  string
	isDir bool
}

func isMIDI(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".mid") || strings.HasSuffix(lower, ".midi")
}

func newBrowser(dir string) browserModel {
	b := browserModel{currentDir: dir}
	b.loadFiles()
	return b
}

func (b *browserModel) loadFiles() {
	b.files = []fileInfo{}

	if parent := filepath.Dir(b.currentDir); parent != b.currentDir {
		b.files = append(b.files, fileInfo{name: "..", path: parent, isDir: true})
	}

	entries, err := os.ReadDir(b.currentDir)
	if err != nil {
		b.message = fmt.Sprintf("Error reading directory: %v", err)
		return
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() || isMIDI(entry.Name()) {
			b.files = append(b.files, fileInfo{
				name:  entry.Name(),
				path:  filepath.Join(b.currentDir, entry.Name()),
				isDir: entry.IsDir(),
			})
		}
	}

	if b.cursor >= len(b.files) && len(b.files) > 0 {
		b.cursor = len(b.files) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
	b.viewportTop = 0
}

// visibleLines is how many entries fit below the header and help lines.
func visibleLines(height int) int {
	n := height - 9
	if n < 5 {
		n = 5
	}
	return n
}

func (b *browserModel) up() {
	if b.cursor > 0 {
		b.cursor--
	}
	if b.cursor < b.viewportTop {
		b.viewportTop = b.cursor
	}
}

func (b *browserModel) down(height int) {
	if b.cursor < len(b.files)-1 {
		b.cursor++
	}
	if n := visibleLines(height); b.cursor >= b.viewportTop+n {
		b.viewportTop = b.cursor - n + 1
	}
}

// enter opens the selected directory, or returns the selected file.
func (b *browserModel) enter() (string, bool) {
	if len(b.files) == 0 {
		return "", false
	}
	selected := b.files[b.cursor]
	if selected.isDir {
		b.currentDir = selected.path
		b.cursor = 0
		b.message = ""
		b.loadFiles()
		return "", false
	}
	return selected.path, true
}

func (b browserModel) view(height int, helpLine string) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("keytutor - pick a score") + "\n\n")
	s.WriteString(fmt.Sprintf("Current Directory: %s\n\n", b.currentDir))

	if len(b.files) == 0 {
		s.WriteString("No MIDI files or directories found.\n")
	}
	end := b.viewportTop + visibleLines(height)
	if end > len(b.files) {
		end = len(b.files)
	}
	for i := b.viewportTop; i < end; i++ {
		file := b.files[i]
		cursor := " "
		if i == b.cursor {
			cursor = ">"
		}
		name := midiStyle.Render(file.name)
		if file.isDir {
			name = dirStyle.Render(file.name + "/")
		}
		if i == b.cursor {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("%s %s", cursor, name)) + "\n")
		} else {
			s.WriteString(fmt.Sprintf("%s %s\n", cursor, name))
		}
	}

	s.WriteString("\n")
	if b.message != "" {
		s.WriteString(errorStyle.Render(b.message) + "\n")
	}
	s.WriteString("\n" + helpLine)
	return s.String()
}
