package fileutil

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// MoveFile moves a file into destDir and returns its new path.
// If a file with the same name exists, a counter is added: "IMG_1 (1).jpg".
func MoveFile(src, destDir string) (string, error) {
	dest, err := uniqueDest(src, destDir)
	if err != nil {
		return "", err
	}
	if err := moveFileAcrossFS(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// CopyFile copies a file into destDir and returns the path of the copy.
// Naming follows MoveFile.
func CopyFile(src, destDir string) (string, error) {
	dest, err := uniqueDest(src, destDir)
	if err != nil {
		return "", err
	}
	if err := copyFile(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func uniqueDest(src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	name := findUniqueName(filepath.Base(src), func(name string) bool {
		_, err := os.Lstat(filepath.Join(destDir, name))
		return os.IsNotExist(err)
	})
	return filepath.Join(destDir, name), nil
}

// findUniqueName finds a unique filename by appending " (n)" before the
// extension. isAvailable should return true if the name can be used.
func findUniqueName(filename string, isAvailable func(string) bool) string {
	if isAvailable(filename) {
		return filename
	}

	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", name, counter, ext)
		if isAvailable(candidate) {
			return candidate
		}
	}
}

// moveFileAcrossFS moves a file, falling back to copy+delete for cross-filesystem moves.
func moveFileAcrossFS(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := copyFile(src, dest); err != nil {
			return err
		}
		return os.Remove(src)
	}

	return err
}

// copyFile copies src to dest, keeping the mode and modification time so
// copied bursts still sort by capture time.
func copyFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, srcFile); err != nil {
		destFile.Close()
		os.Remove(dest) // Clean up on failure
		return err
	}
	if err := destFile.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	return os.Chtimes(dest, time.Now(), srcInfo.ModTime())
}

// MoveToTrash moves a file to the system trash/recycle bin.
// - macOS: ~/.Trash
// - Linux: $XDG_DATA_HOME/Trash (freedesktop.org trash layout)
// - Windows: Recycle Bin (via shell32.dll)
func MoveToTrash(src string) error {
	if _, err := os.Lstat(src); err != nil {
		return err
	}

	switch runtime.GOOS {
	case "windows":
		return moveToWindowsTrash(src)
	case "linux":
		trashHome, err := linuxTrashHome()
		if err != nil {
			return err
		}
		return moveToLinuxTrash(src, trashHome)
	default: // darwin, etc.
		trashDir, err := getTrashDir()
		if err != nil {
			return err
		}
		_, err = MoveFile(src, trashDir)
		return err
	}
}

// getTrashDir returns the trash folder used outside Linux and Windows.
func getTrashDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	trashDir := filepath.Join(homeDir, "burstpick_trash")
	if runtime.GOOS == "darwin" {
		trashDir = filepath.Join(homeDir, ".Trash")
	}

	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create trash directory: %w", err)
	}

	return trashDir, nil
}

// linuxTrashHome returns the home trash directory, honouring XDG_DATA_HOME.
func linuxTrashHome() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataHome = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataHome, "Trash"), nil
}

// moveToLinuxTrash moves a file into trashHome/files with a matching
// .trashinfo record in trashHome/info.
func moveToLinuxTrash(src, trashHome string) error {
	filesDir := filepath.Join(trashHome, "files")
	infoDir := filepath.Join(trashHome, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create trash directory: %w", err)
		}
	}

	absPath, err := filepath.Abs(src)
	if err != nil {
		return err
	}

	// Must be free in both files and info
	destName := findUniqueName(filepath.Base(src), func(name string) bool {
		_, err1 := os.Lstat(filepath.Join(filesDir, name))
		_, err2 := os.Lstat(filepath.Join(infoDir, name+".trashinfo"))
		return os.IsNotExist(err1) && os.IsNotExist(err2)
	})

	dest := filepath.Join(filesDir, destName)
	infoPath := filepath.Join(infoDir, destName+".trashinfo")

	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: absPath}).EscapedPath(),
		time.Now().Format("2006-01-02T15:04:05"))

	if err := os.WriteFile(infoPath, []byte(info), 0600); err != nil {
		return err
	}

	if err := moveFileAcrossFS(src, dest); err != nil {
		os.Remove(infoPath) // Clean up .trashinfo if move fails
		return err
	}

	return nil
}
