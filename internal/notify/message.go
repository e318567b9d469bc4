package notify

import (
	"fmt"
	"time"
)

// MatchBody renders the SMS telling player where and when to play.
func MatchBody(eventName, player, opponent, tableLabel string, matchTime time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"%s match update: %s, you are playing %s at %s at %s. Please head to your table.",
		eventName, player, opponent, tableLabel, matchTime.In(loc).Format("15:04"),
	)
}
