package views

import (
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
)

// BoardData is what the display page needs, split into tables in play and
// tables waiting for players.
type BoardData struct {
	EventName string
	Location  string
	Organizer string
	Playing   []BoardEntry
	Free      []pairing.BoardRow
	Updated   string
}

type BoardEntry struct {
	Row     pairing.BoardRow
	Players string
	Since   string
}

// PrepareBoardData keeps board order within each group and renders times in loc.
func PrepareBoardData(event *pairing.Event, rows []pairing.BoardRow, loc *time.Location, now time.Time) BoardData {
	data := BoardData{
		EventName: event.Name,
		Location:  utils.OrZero(event.Location),
		Updated:   now.In(loc).Format("15:04"),
	}
	for _, row := range rows {
		if row.Status != pairing.TableOccupied || row.Player1 == nil || row.Player2 == nil {
			data.Free = append(data.Free, row)
			continue
		}
		entry := BoardEntry{
			Row:     row,
			Players: row.Player1.FullName + " vs " + row.Player2.FullName,
		}
		switch {
		case row.StartedAt != nil:
			entry.Since = "playing since " + row.StartedAt.In(loc).Format("15:04")
		case row.AssignmentCreatedAt != nil:
			entry.Since = "called at " + row.AssignmentCreatedAt.In(loc).Format("15:04")
		}
		data.Playing = append(data.Playing, entry)
	}
	return data
}
