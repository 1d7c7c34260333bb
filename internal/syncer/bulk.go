package syncer

import (
	"context"
	"fmt"

	"github.com/Zuo-Peng/memsync/internal/scan"
)

// cwdScanLines bounds how far into a transcript SyncAll looks for the
// session's working directory.
const cwdScanLines = 50

type Stats struct {
	Scanned   int
	Synced    int
	UpToDate  int
	Partial   int
	Failed    int
	Delivered int
	Errors    int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d synced=%d up-to-date=%d partial=%d failed=%d delivered=%d errors=%d",
		s.Scanned, s.Synced, s.UpToDate, s.Partial, s.Failed, s.Delivered, s.Errors)
}

// SyncAll runs one pass for every transcript under root, using each file's
// base name as the session id. Sessions are independent: a failed session
// does not stop the others. It stops early only when ctx is done.
func (c *Coordinator) SyncAll(ctx context.Context, root string) (Stats, error) {
	var stats Stats

	files, err := scan.Transcripts(root)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		cwd := scan.Cwd(f.Path, cwdScanLines)
		if cwd == "" {
			cwd = f.Project
		}
		res, err := c.Sync(ctx, Request{SessionID: f.SessionID, TranscriptPath: f.Path, Cwd: cwd})
		stats.Delivered += res.Delivered
		if err != nil {
			stats.Errors++
			c.log.Warn().Err(err).Str("path", f.Path).Msg("sync failed")
			continue
		}

		switch res.Outcome {
		case OutcomeNoNewData:
			stats.UpToDate++
		case OutcomeComplete:
			stats.Synced++
		case OutcomePartial:
			stats.Partial++
		case OutcomeFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
