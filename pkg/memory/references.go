package memory

import (
	"fmt"
	"strings"
)

// maxReferences caps how many callbacks to past interactions a
// character works into a single line of dialogue.
const maxReferences = 2

// ConversationReferences returns up to two natural-language
// references to past interactions, for weaving into character
// dialogue. Candidates, in priority order: the most recent summaries
// matching the topic, a shared-secret nod, the oldest open promise,
// and the most intense unrecovered emotional moment.
func (l *Ledger) ConversationReferences(characterID, playerID, topic string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[key(characterID, playerID)]
	if !ok {
		return nil
	}

	var refs []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] || len(refs) >= maxReferences {
			return
		}
		seen[s] = true
		refs = append(refs, s)
	}

	// Most recent three summaries matching the topic.
	matched := 0
	for i := len(r.Summaries) - 1; i >= 0 && matched < 3; i-- {
		s := r.Summaries[i]
		if topic != "" && !strings.Contains(strings.ToLower(s.Topic), strings.ToLower(topic)) &&
			!strings.Contains(strings.ToLower(s.Text), strings.ToLower(topic)) {
			continue
		}
		matched++
		add(fmt.Sprintf("Last time we spoke of %s.", summaryPhrase(s)))
	}

	if len(r.Secrets) > 0 {
		add("I still keep what you told me in confidence.")
	}

	for i := range r.Promises {
		p := r.Promises[i]
		if !p.Fulfilled && !p.Broken {
			add(fmt.Sprintf("You still owe me on your word: %s.", p.Content))
			break
		}
	}

	best := -1
	for i, m := range r.Moments {
		if m.Recovered || m.Intensity < 7 {
			continue
		}
		if best < 0 || m.Intensity > r.Moments[best].Intensity {
			best = i
		}
	}
	if best >= 0 {
		add(fmt.Sprintf("I haven't forgotten the %s between us.", r.Moments[best].Emotion))
	}

	return refs
}

func summaryPhrase(s Summary) string {
	if s.Topic != "" {
		return s.Topic
	}
	if len(s.Text) > 40 {
		return s.Text[:40] + "..."
	}
	return s.Text
}
