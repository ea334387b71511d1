//go:build !windows

package fileutil

import "errors"

var errNoRecycleBin = errors.New("recycle bin is only available on windows")

func moveToWindowsTrash(string) error {
	return errNoRecycleBin
}
