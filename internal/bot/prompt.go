package bot

import (
	"strconv"
	"strings"

	"github.com/itsu-games/itsu/internal/game"
	"github.com/itsu-games/itsu/internal/strpool"
)

// only the tail of the chat goes into prompts to keep them bounded
const chatHistoryLimit = 30

func writeChatHistory(b *strings.Builder, m game.Match) {
	chat := m.Chat
	if len(chat) > chatHistoryLimit {
		chat = chat[len(chat)-chatHistoryLimit:]
	}
	for _, c := range chat {
		b.WriteString(c.SenderID)
		b.WriteString(": ")
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
}

func chatPrompt(m game.Match, bot game.Player) string {
	b := strpool.Get()
	defer strpool.Put(b)

	b.WriteString("You are playing a social deduction game. Your ID is ")
	b.WriteString(bot.PlayerID)
	b.WriteString(". You are a ")
	b.WriteString(string(bot.Role))
	b.WriteString(".\n")
	b.WriteString("If you are CITIZEN then use the item, if you are WOLF then use the item hint.\n")
	b.WriteString("A CITIZEN must not disclose the identity of the item, the message should be vague but related to it.\n")
	b.WriteString("The item is: \"")
	b.WriteString(m.Item)
	b.WriteString("\"\nThe item hint is: \"")
	b.WriteString(m.Hint)
	b.WriteString("\"\nRecent chat:\n")
	writeChatHistory(b, m)
	b.WriteString("Write a short, casual 1-sentence chat message pretending to be a human player. ")
	b.WriteString("Do not use hashtags or emojis. Defend yourself or accuse others based on the chat.")

	return b.String()
}

func votePrompt(m game.Match, bot game.Player) string {
	b := strpool.Get()
	defer strpool.Put(b)

	b.WriteString("You are playing a social deduction game. Your ID is ")
	b.WriteString(bot.PlayerID)
	b.WriteString(". You are a ")
	b.WriteString(string(bot.Role))
	b.WriteString(".\nAnalyze the chat and determine who to vote out.\nRecent chat:\n")
	writeChatHistory(b, m)
	b.WriteString("Alive players: [")
	var n int
	for _, p := range m.Players {
		if p.IsDead || p.PlayerID == bot.PlayerID {
			continue
		}
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.PlayerID)
		n++
	}
	b.WriteString("]\n\nYou MUST reply ONLY with a valid JSON object containing the targetId.\n")
	b.WriteString("Example: {\"targetId\": \"player-id-here\"}")

	return b.String()
}

func killPrompt(m game.Match, bot game.Player) string {
	b := strpool.Get()
	defer strpool.Put(b)

	b.WriteString("You are playing a social deduction game. Your ID is ")
	b.WriteString(bot.PlayerID)
	b.WriteString(". You are the WOLF after round ")
	b.WriteString(strconv.Itoa(m.TotalRounds))
	b.WriteString(".\nUse the chat to find out who can provide better information and who cannot.\nRecent chat:\n")
	writeChatHistory(b, m)
	b.WriteString("Alive citizens: [")
	var n int
	for _, p := range m.AliveCitizens() {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.PlayerID)
		n++
	}
	b.WriteString("]\n\nYou MUST reply ONLY with a valid JSON object containing the targetId of the citizen to eliminate.\n")
	b.WriteString("Example: {\"targetId\": \"citizen-id-here\"}")

	return b.String()
}
