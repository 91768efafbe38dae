package pkg

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
)

// GetProjectRoot walks up from the working directory until it finds a
// bindgen.star or a .git directory. The tool always runs inside the project
// it serves, so the working directory is the only sensible starting point.
func GetProjectRoot() (string, error) {
	path, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	for {
		for _, marker := range []string{"bindgen.star", ".git"} {
			_, err := os.Stat(filepath.Join(path, marker))
			if err == nil {
				return path, nil
			}

			if !eris.Is(err, os.ErrNotExist) {
				return "", eris.Wrap(err, "error ocurred while searching for project root")
			}
		}

		nextPath := filepath.Dir(path)
		if path == nextPath {
			break
		}
		path = nextPath
	}

	return "", eris.New("Project root not found")
}

func PrintTask(msg string) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", msg)
}

func PrintSubtask(msg string) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", msg)
}

func PrintError(msg string) {
	colorstring.Printf("[red][bold]  ->[reset] %s\n", msg)
}
