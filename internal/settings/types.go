package settings

import "time"

const (
	DefaultSystemPrompt = "You are a helpful customer support assistant. " +
		"Answer using the provided company documents when they are relevant, " +
		"and say so plainly when you do not know."
	DefaultMarketingPrompt = "You are a marketing copywriter. Produce short, " +
		"engaging promotional copy suitable for a WhatsApp broadcast."
)

// Settings is the singleton configuration row held by the external store.
// Secret fields are stored in clear there and masked on every read path out
// of this package.
type Settings struct {
	SystemPrompt          string    `json:"system_prompt"`
	MarketingPrompt       string    `json:"marketing_prompt"`
	GeminiAPIKey          string    `json:"gemini_api_key"`
	WhatsAppAccessToken   string    `json:"whatsapp_access_token"`
	WhatsAppPhoneNumberID string    `json:"whatsapp_phone_number_id"`
	WebhookVerifyToken    string    `json:"webhook_verify_token"`
	AppSecret             string    `json:"app_secret"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// UpsertRequest carries a partial update. Nil fields keep the stored value;
// secret fields additionally keep the stored value when the submitted text is
// empty or still masked, so the console can round-trip the masked view.
type UpsertRequest struct {
	SystemPrompt          *string `json:"system_prompt,omitempty"`
	MarketingPrompt       *string `json:"marketing_prompt,omitempty"`
	GeminiAPIKey          *string `json:"gemini_api_key,omitempty"`
	WhatsAppAccessToken   *string `json:"whatsapp_access_token,omitempty"`
	WhatsAppPhoneNumberID *string `json:"whatsapp_phone_number_id,omitempty"`
	WebhookVerifyToken    *string `json:"webhook_verify_token,omitempty"`
	AppSecret             *string `json:"app_secret,omitempty"`
}
