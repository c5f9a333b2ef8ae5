package relay

import "github.com/ecologiciel/gemini-rag-master/internal/whatsapp"

// InlineMedia is media attached to a console chat message, already base64
// encoded by the client.
type InlineMedia struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// ChatInput is one completion request flowing through the relay.
type ChatInput struct {
	Query   string
	Media   *InlineMedia
	Channel string
	UserID  string
}

// ChatResult carries the answer and which documents grounded it.
type ChatResult struct {
	Text        string   `json:"text"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// BroadcastInput addresses one broadcast. Exactly one of Text or Template is
// used; Template reaches recipients outside the 24 hour window.
type BroadcastInput struct {
	Recipients []string
	Text       string
	Template   *whatsapp.Template
}

// BroadcastError describes one failed recipient.
type BroadcastError struct {
	Recipient       string `json:"recipient"`
	Code            int    `json:"code,omitempty"`
	Message         string `json:"message"`
	WindowViolation bool   `json:"window_violation"`
}

// Report summarizes a finished broadcast. It is returned to the caller and
// never persisted. Success+Failed always equals Total.
type Report struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []BroadcastError `json:"errors,omitempty"`
}
