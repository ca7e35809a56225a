package play

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"
)

// sendNotification is replaced in tests.
var sendNotification = func(title, body string) error {
	return beeep.Notify(title, body, "")
}

// notifyComplete raises a desktop notification for a finished replay. The
// terminal belongs to the UI, so a failure goes to the log and to notice.
func notifyComplete(logger *slog.Logger, notice func(string), name string, events int) {
	title := "sceneplay: replay complete"
	body := fmt.Sprintf("%s | %d events", name, events)

	if err := sendNotification(title, body); err != nil {
		logger.Warn("desktop notification failed", "error", err)
		if notice != nil {
			notice(fmt.Sprintf("replay complete, desktop notification failed: %v", err))
		}
		return
	}
	logger.Info("notification sent", "title", title)
}
