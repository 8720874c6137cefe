package stats

import (
	"fmt"
	"time"
)

// SeasonClosedError reports a result dated past a season's end, or into a
// season already closed. Ingestion is skipped unless the caller sets the
// backfill flag.
type SeasonClosedError struct {
	SeasonID string
	MatchID  string
	End      time.Time
}

func (e *SeasonClosedError) Error() string {
	return fmt.Sprintf("season %s closed (ended %s): result %s rejected, use backfill to force-append",
		e.SeasonID, e.End.Format("2006-01-02"), e.MatchID)
}
