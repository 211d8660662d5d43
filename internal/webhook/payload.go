package webhook

// Event is the Meta webhook envelope, trimmed to the fields the bot reads.
type Event struct {
	Entry []Entry `json:"entry"`
}

type Entry struct {
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value `json:"value"`
}

type Value struct {
	Messages []Message `json:"messages"`
}

type Message struct {
	From  string `json:"from"`
	Type  string `json:"type"`
	Text  *Text  `json:"text,omitempty"`
	Image *Image `json:"image,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Image struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

// FirstMessage digs out the first inbound message, if any. Status-only
// callbacks (delivery receipts) carry no messages and are ignored.
func (e Event) FirstMessage() (Message, bool) {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 {
		return Message{}, false
	}
	msgs := e.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[0], true
}
