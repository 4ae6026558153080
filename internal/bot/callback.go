package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smartlms/remindbot/internal/service/telegram"
)

// Callback data carried by reminder inline buttons: "<action>:<task id>"
const (
	actionMute   = "mute"
	actionUnmute = "unmute"
)

// MuteButton silences reminders for one task
func MuteButton(taskID int64) telegram.InlineButton {
	return telegram.InlineButton{
		Text:         "🔕 Mute this task",
		CallbackData: actionMute + ":" + strconv.FormatInt(taskID, 10),
	}
}

// UnmuteButton re-enables reminders for one task
func UnmuteButton(taskID int64) telegram.InlineButton {
	return telegram.InlineButton{
		Text:         "🔔 Unmute this task",
		CallbackData: actionUnmute + ":" + strconv.FormatInt(taskID, 10),
	}
}

func parseCallback(data string) (action string, taskID int64, err error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed callback data: %q", data)
	}

	if action != actionMute && action != actionUnmute {
		return "", 0, fmt.Errorf("unknown callback action: %q", action)
	}

	taskID, err = strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed task id in callback data: %q", data)
	}

	return action, taskID, nil
}
