//go:build windows

package linkswap

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// hasMultipleLinks reports whether path has more than one hard link. Unlike
// Unix, Go's os.FileInfo carries no nlink field on Windows, so this opens a
// handle the same way internal/platform's Stat does and reads
// NumberOfLinks off it.
func hasMultipleLinks(path string, _ os.FileInfo) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false, err
	}

	handle, err := windows.CreateFile(
		p,
		0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer windows.CloseHandle(handle) //nolint:errcheck // best-effort close after read

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(handle, &info); err != nil {
		return false, fmt.Errorf("get file information for %s: %w", path, err)
	}
	return info.NumberOfLinks > 1, nil
}
