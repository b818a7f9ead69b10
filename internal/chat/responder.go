package chat

import (
	"math/rand"
	"strings"
	"sync"
)

// Message is one turn of a styling conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Canned replies used when no upstream completion API is configured. The
// original demo shipped these behind a setTimeout; here the choice is a pure
// function of the history and the injected randomness.
var cannedReplies = []string{
	"That would pair nicely with a tailored blazer and white sneakers.",
	"Try layering it with a longline cardigan for a softer silhouette.",
	"A monochrome look with one bold accessory would make that pop.",
	"For that occasion I'd go with smart casual: chinos and a knit polo.",
	"Earth tones suit that style. Maybe add a camel coat for the season.",
}

var topicReplies = []struct {
	keyword string
	reply   string
}{
	{"wedding", "For a wedding guest look, a midi dress or a well-fitted suit in a muted tone is a safe bet."},
	{"interview", "For interviews, keep it simple: solid colors, structured fit, minimal accessories."},
	{"rain", "On rainy days, a water-resistant trench and leather boots keep the outfit intact."},
}

// RNG picks canned replies. One picker is shared by every request and
// math/rand.Rand is not safe for concurrent use, so draws are serialized.
type RNG struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRNG creates a seeded reply picker
func NewRNG(seed int64) *RNG {
	return &RNG{rng: rand.New(rand.NewSource(seed))}
}

func (r *RNG) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Respond chooses a reply for the conversation so far. Deterministic for a
// seeded rng; keyword matches on the latest user message take precedence.
func Respond(history []Message, rng *RNG) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		lower := strings.ToLower(history[i].Content)
		for _, topic := range topicReplies {
			if strings.Contains(lower, topic.keyword) {
				return topic.reply
			}
		}
		break
	}
	return cannedReplies[rng.intn(len(cannedReplies))]
}
