package services

import (
	"hash/fnv"
	"time"
)

var greetingComplements = []string{
	"senhor! Em que posso ser útil hoje?",
	"como posso ajudá-lo hoje?",
	"espero que esteja bem! Como posso auxiliá-lo?",
	"o que está planejando para hoje?",
	"estou aqui para o que precisar!",
	"tem algo em que eu possa ajudar?",
	"estou pronto para auxiliá-lo!",
}

// GreetingBase returns the salutation for the hour of t.
func GreetingBase(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "Bom dia"
	case h >= 12 && h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

// Greeting builds the welcome line for a session. The complement is picked
// from the session id, so it stays the same for the whole session.
func Greeting(t time.Time, sessionID string) string {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	complement := greetingComplements[h.Sum32()%uint32(len(greetingComplements))]
	return GreetingBase(t) + " " + complement
}
