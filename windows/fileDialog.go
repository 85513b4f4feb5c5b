package windows

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Extensions offered by the two browse modes.
var (
	ProfileExtensions  = []string{".share", ".json", ".txt"}
	DataFileExtensions = []string{".csv", ".tsv", ".parquet", ".json"}
)

// FileDialog is a directory browser that lists folders and files with
// one of its extensions. The callback receives the chosen path.
type FileDialog struct {
	dialog      dialog.Dialog
	window      fyne.Window
	title       string
	extensions  []string
	callback    func(string, error)
	fileList    *widget.List
	files       []string
	homeDir     string
	currentPath string
	pathLabel   *widget.Label
}

// NewProfileDialog browses for Delta Sharing profiles.
func NewProfileDialog(w fyne.Window, callback func(string, error)) *FileDialog {
	return NewFileDialog(w, "Select Delta Sharing Profile", ProfileExtensions, callback)
}

// NewDataFileDialog browses for CSV, Parquet and JSON files.
func NewDataFileDialog(w fyne.Window, callback func(string, error)) *FileDialog {
	return NewFileDialog(w, "Open Data File", DataFileExtensions, callback)
}

func NewFileDialog(w fyne.Window, title string, extensions []string, callback func(string, error)) *FileDialog {
	fd := &FileDialog{
		window:     w,
		title:      title,
		extensions: extensions,
		callback:   callback,
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	fd.homeDir = homeDir
	fd.currentPath = homeDir
	if wd, err := os.Getwd(); err == nil {
		fd.currentPath = wd
	}
	return fd
}

func (fd *FileDialog) matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range fd.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (fd *FileDialog) Show() {
	fd.pathLabel = widget.NewLabel(fd.currentPath)
	fd.pathLabel.Truncation = fyne.TextTruncateEllipsis
	fd.pathLabel.TextStyle = fyne.TextStyle{Bold: true}

	fd.fileList = widget.NewList(
		func() int {
			return len(fd.files)
		},
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewIcon(theme.DocumentIcon()), widget.NewLabel("template"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			cont := obj.(*fyne.Container)
			icon := cont.Objects[0].(*widget.Icon)
			label := cont.Objects[1].(*widget.Label)

			name := fd.files[id]
			label.SetText(name)
			if info, err := os.Stat(filepath.Join(fd.currentPath, name)); err == nil && info.IsDir() {
				icon.SetResource(theme.FolderIcon())
			} else {
				icon.SetResource(theme.DocumentIcon())
			}
		},
	)

	fd.fileList.OnSelected = func(id widget.ListItemID) {
		fullPath := filepath.Join(fd.currentPath, fd.files[id])
		info, err := os.Stat(fullPath)
		if err != nil {
			return
		}
		if info.IsDir() {
			fd.currentPath = fullPath
			fd.loadDirectory()
			fd.fileList.UnselectAll()
			return
		}
		fd.dialog.Hide()
		fd.callback(fullPath, nil)
	}

	homeButton := widget.NewButtonWithIcon("Home", theme.HomeIcon(), func() {
		fd.currentPath = fd.homeDir
		fd.loadDirectory()
	})
	upButton := widget.NewButtonWithIcon("Up", theme.NavigateBackIcon(), func() {
		parent := filepath.Dir(fd.currentPath)
		if parent != fd.currentPath {
			fd.currentPath = parent
			fd.loadDirectory()
		}
	})
	refreshButton := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), func() {
		fd.loadDirectory()
	})

	filterInfo := widget.NewLabel("Showing: " + strings.Join(fd.extensions, ", ") + " files, and directories")
	filterInfo.TextStyle = fyne.TextStyle{Italic: true}

	navToolbar := container.NewBorder(
		nil, nil,
		container.NewHBox(homeButton, upButton, refreshButton),
		nil,
		fd.pathLabel,
	)

	content := container.NewBorder(
		container.NewVBox(navToolbar, widget.NewSeparator(), filterInfo),
		nil, nil, nil,
		fd.fileList,
	)

	fd.dialog = dialog.NewCustom(fd.title, "Close", content, fd.window)
	fd.dialog.Resize(fyne.NewSize(800, 600))
	fd.loadDirectory()
	fd.dialog.Show()
}

func (fd *FileDialog) loadDirectory() {
	entries, err := os.ReadDir(fd.currentPath)
	if err != nil {
		dialog.ShowError(err, fd.window)
		return
	}

	var dirs, files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		switch {
		case entry.IsDir():
			dirs = append(dirs, name)
		case fd.matches(name):
			files = append(files, name)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	fd.files = append(dirs, files...)

	fd.pathLabel.SetText(fd.currentPath)
	fd.fileList.Refresh()
}
