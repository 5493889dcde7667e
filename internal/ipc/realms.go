package ipc

import "fmt"

// Realm paths. A realm is a subscription scope a connection joins via
// JoinPath to receive a class of broadcast events.

const LobbyRealm = "lobby"

func GameRealm(gameID string) string {
	return "game." + gameID
}

func ChatRealm(channel string) string {
	return "chat." + channel
}

func TournamentRealm(tournamentID, division string) string {
	return fmt.Sprintf("tournament.%s.%s", tournamentID, division)
}
