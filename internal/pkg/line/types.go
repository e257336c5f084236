package line

// Message is one outbound LINE message object.
type Message struct {
	Type               string      `json:"type"`
	Text               string      `json:"text,omitempty"`
	OriginalContentURL string      `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string      `json:"previewImageUrl,omitempty"`
	QuickReply         *QuickReply `json:"quickReply,omitempty"`
}

type QuickReply struct {
	Items []QuickReplyItem `json:"items"`
}

type QuickReplyItem struct {
	Type   string `json:"type"`
	Action Action `json:"action"`
}

type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

func NewText(text string) Message {
	return Message{Type: "text", Text: text}
}

// NewImage uses the same URL for the full image and its preview.
func NewImage(url string) Message {
	return Message{
		Type:               "image",
		OriginalContentURL: url,
		PreviewImageURL:    url,
	}
}

// NewTextWithMessageButton attaches a quick-reply button that sends a fixed
// text message when tapped.
func NewTextWithMessageButton(text, label, message string) Message {
	return Message{
		Type: "text",
		Text: text,
		QuickReply: &QuickReply{
			Items: []QuickReplyItem{
				{
					Type: "action",
					Action: Action{
						Type:  "message",
						Label: label,
						Text:  message,
					},
				},
			},
		},
	}
}

// WebhookRequest is the inbound webhook envelope.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken"`
	Source     Source       `json:"source"`
	Message    EventMessage `json:"message"`
}

type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type EventMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// IsTextMessage reports whether the event carries a user text message.
func (e Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text"
}
