package translate

import "context"

// Request is the translation contract the pipeline requires: plain text
// in, translated text out. The transport behind it is a backend concern.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// Response carries the translated text for one request.
type Response struct {
	TranslatedText string `json:"translatedText"`
}

// Backend is the awaitable request/response port to a translation
// provider. Implementations must honor ctx cancellation.
type Backend interface {
	Translate(ctx context.Context, req Request) (Response, error)
}
