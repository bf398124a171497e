package admin

import (
	"fmt"

	"github.com/bingwamta/databot/internal/chat"
	"github.com/bingwamta/databot/internal/directory"
)

const (
	deniedText        = "You don't have permission to access this command."
	closedText        = "The admin panel is closed. Send /admin to open it again."
	progressStartText = "🔄 Sending broadcast message...\n\nPlease wait, this may take some time depending on the number of users."
)

func panelMessage() chat.Message {
	return chat.Message{
		Text:     "🔐 *Admin Panel*\n\nPlease select an option:",
		Markdown: true,
		Buttons: [][]chat.Button{
			{{Label: "📢 Send Broadcast Message", Data: BtnBroadcast}},
			{{Label: "📊 View Stats", Data: BtnStats}},
			{{Label: "❌ Exit Admin Panel", Data: BtnExit}},
		},
	}
}

func broadcastPrompt() chat.Message {
	return chat.Message{
		Text: "📢 *Send Broadcast Message*\n\nPlease enter the message you want to send to all users.\n" +
			"This will be sent to everyone who has used the bot.\n\nType /cancel to cancel.",
		Markdown: true,
	}
}

// broadcastMessage keeps the operator's own Markdown intact.
func broadcastMessage(text string) chat.Message {
	return chat.Message{Text: "📢 *Broadcast Message*\n\n" + text, Markdown: true}
}

func progressText(sent, total int) string {
	return fmt.Sprintf("🔄 Sending broadcast message...\n\nProgress: %d/%d messages sent.", sent, total)
}

func tallyMessage(t Tally) chat.Message {
	return chat.Message{
		Text:     fmt.Sprintf("✅ *Broadcast Complete*\n\nMessages sent: %d\nFailed: %d", t.Sent, t.Failed),
		Markdown: true,
	}
}

func followUpMessage() chat.Message {
	return chat.Message{
		Text: "Broadcast completed. What would you like to do next?",
		Buttons: [][]chat.Button{
			{{Label: "📢 Send Another Broadcast", Data: BtnBroadcast}},
			{{Label: "❌ Exit Admin Panel", Data: BtnExit}},
		},
	}
}

func statsMessage(st directory.Stats) chat.Message {
	return chat.Message{
		Text: fmt.Sprintf("📊 *Bot Statistics*\n\nTotal Users: %d\nActive (last 24h): %d\nNew (last 7 days): %d",
			st.Total, st.ActiveLastDay, st.JoinedLastWeek),
		Markdown: true,
	}
}
