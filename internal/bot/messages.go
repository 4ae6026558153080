package bot

// Reply texts. HTML parse mode, so dynamic parts must be escaped before
// interpolation.
const (
	msgStart = "Hello! I will remind you about upcoming quiz and assignment deadlines.\n\n" +
		"Reminders repeat until the deadline passes. Press the button under a reminder to mute a single task, " +
		"or send /stop to pause everything.\n\nSend /help to see all commands."

	msgStop        = "Reminders paused. Send /start when you want them back."
	msgAlreadyStop = "Reminders are already paused."

	msgHelp = "/start — turn reminders on\n" +
		"/stop — pause all reminders\n" +
		"/deadlines — list upcoming deadlines\n" +
		"/set_remind_interval &lt;duration&gt; — how often to repeat a reminder, e.g. 12h or 90m\n" +
		"/help — this message"

	msgUnknownCommand = "I don't know that command. Send /help to see what I can do."

	msgIntervalUsage = "Send the interval like this: /set_remind_interval 12h"

	msgNoDeadlines = "No upcoming deadlines. Enjoy the quiet."

	msgTaskMuted   = "Muted. I won't remind you about this task again."
	msgTaskUnmuted = "Unmuted. Reminders for this task are back on."
)
