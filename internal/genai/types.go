package genai

// Content is one entry of the generateContent contents list.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single prompt part: plain text, inline media bytes, or a
// reference to a file already held by the provider's file store.
type Part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *Blob     `json:"inline_data,omitempty"`
	FileData   *FileData `json:"file_data,omitempty"`
}

// Blob carries base64-encoded inline media.
type Blob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// FileData references a provider file-store object by URI.
type FileData struct {
	MIMEType string `json:"mime_type,omitempty"`
	FileURI  string `json:"file_uri"`
}

// TextPart builds a text part.
func TextPart(text string) Part { return Part{Text: text} }

// InlinePart builds an inline media part from base64 data.
func InlinePart(mime, data string) Part {
	return Part{InlineData: &Blob{MIMEType: mime, Data: data}}
}

// FilePart builds a file-store reference part.
func FilePart(mime, uri string) Part {
	return Part{FileData: &FileData{MIMEType: mime, FileURI: uri}}
}

// GenerateInput is a single completion request.
type GenerateInput struct {
	Model             string
	SystemInstruction string
	Contents          []Content
}

// File state values reported by the provider's file store.
const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

// File is a provider file-store object.
type File struct {
	Name      string `json:"name"`
	URI       string `json:"uri"`
	MIMEType  string `json:"mimeType"`
	State     string `json:"state"`
	SizeBytes string `json:"sizeBytes,omitempty"`
}
