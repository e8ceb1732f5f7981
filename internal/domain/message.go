package domain

// Message is a single outbound notification. Channels that cannot carry a
// subject or HTML ignore those fields.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
