// internal/core/domain/fetch.go
package domain

import "time"

// FetchOutcome es la variante del resultado de un fetch de un salto.
type FetchOutcome string

const (
	FetchFinalPage FetchOutcome = "final_page"
	FetchRedirect  FetchOutcome = "redirect"
	FetchError     FetchOutcome = "error"
)

const (
	ViaLocation    = "location"
	ViaMetaRefresh = "meta-refresh"
)

// PageMeta metadatos del cuerpo de una página final.
type PageMeta struct {
	ContentType string `json:"content_type,omitempty"`
	Length      int64  `json:"length"`
	Title       string `json:"title,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// FetchResult es el resultado de seguir exactamente un salto HTTP.
type FetchResult struct {
	Outcome    FetchOutcome
	StatusCode int

	// Location destino absoluto (solo Redirect)
	Location string
	Via      string

	// Page metadatos (solo FinalPage)
	Page *PageMeta

	RemoteAddr string
	Elapsed    time.Duration

	// Err causa (solo Error); clasificable con KindOf
	Err error
}

// FinalPageResult construye un resultado FinalPage.
func FinalPageResult(status int, page *PageMeta) FetchResult {
	return FetchResult{Outcome: FetchFinalPage, StatusCode: status, Page: page}
}

// RedirectResult construye un resultado Redirect.
func RedirectResult(status int, location, via string) FetchResult {
	return FetchResult{Outcome: FetchRedirect, StatusCode: status, Location: location, Via: via}
}

// FetchFailed construye un resultado Error.
func FetchFailed(err error) FetchResult {
	return FetchResult{Outcome: FetchError, Err: err}
}
