//go:build unix

package linkswap

import (
	"fmt"
	"os"
	"syscall"
)

// hasMultipleLinks reports whether path has more than one hard link, via the
// nlink field lstat already gave us.
func hasMultipleLinks(_ string, info os.FileInfo) (bool, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false, fmt.Errorf("cannot get syscall.Stat_t")
	}
	return stat.Nlink > 1, nil
}
