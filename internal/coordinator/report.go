package coordinator

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/extentdedup/extentdedup/internal/types"
)

// Report summarizes one completed run. Entries is populated only when
// Config.Debug is set (spec §6 "--debug dumps the final file-entry table").
type Report struct {
	SavedBytes int64
	LinksMade  int
	Entries    map[types.ExtentKey]*types.FileEntry
}

// Summary renders the final CLI line (spec §6), wording depending on
// whether the run was a dry run. The size is in binary units (KiB, MiB,
// GiB, ...), scaled to the amount saved.
func (r *Report) Summary(dryRun bool) string {
	verb := "was"
	if dryRun {
		verb = "can be"
	}
	return fmt.Sprintf("A total of %s %s saved across %d link%s",
		humanize.IBytes(uint64(r.SavedBytes)), verb, r.LinksMade, plural(r.LinksMade))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
