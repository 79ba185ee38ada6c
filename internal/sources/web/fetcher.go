// Package web implements the hop fetcher used by the redirect enumerator.
// Each call issues one GET without following redirects and classifies the
// response as a final page, a redirect (Location or meta refresh) or an error.
package web

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/httpclient"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/validator"
)

const sourceName = "web"

var _ ports.Fetcher = (*Fetcher)(nil)

// Options configura la clasificación de respuestas.
type Options struct {
	// MetaRefresh reporta <meta http-equiv="refresh"> de páginas 2xx como redirección
	MetaRefresh bool
}

// Fetcher implementa ports.Fetcher sobre httpclient.
type Fetcher struct {
	client *httpclient.Client
	opts   Options
	logger logx.Logger
}

// New crea un fetcher. El cliente debe tener FollowRedirects desactivado.
func New(client *httpclient.Client, opts Options, logger logx.Logger) *Fetcher {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Fetcher{
		client: client,
		opts:   opts,
		logger: logger.With("component", sourceName),
	}
}

// Fetch implements ports.Fetcher
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) domain.FetchResult {
	base, err := validator.ParseWebURL(rawURL)
	if err != nil {
		return domain.FetchFailed(err)
	}

	resp, err := f.client.Get(ctx, base.String(), map[string]string{
		"Accept": "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		f.logger.Debug("fetch failed", "url", rawURL, "error", err.Error())
		return domain.FetchFailed(err)
	}

	result := f.classify(base.String(), resp)
	result.RemoteAddr = resp.RemoteAddr
	result.Elapsed = resp.Elapsed
	return result
}

func (f *Fetcher) classify(requestURL string, resp *httpclient.Response) domain.FetchResult {
	if isRedirect(resp.StatusCode) {
		if location := strings.TrimSpace(resp.Header.Get("Location")); location != "" {
			target, err := resolve(requestURL, location)
			if err != nil {
				return domain.FetchFailed(err)
			}
			return domain.RedirectResult(resp.StatusCode, target, domain.ViaLocation)
		}
	}

	contentType := resp.Header.Get("Content-Type")
	page := &domain.PageMeta{
		ContentType: contentType,
		Length:      int64(len(resp.Body)),
		Truncated:   resp.Truncated,
	}

	if isHTML(contentType, resp.Body) {
		info := parsePage(resp.Body)
		page.Title = info.Title

		if f.opts.MetaRefresh && info.MetaRefresh != "" && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			target, err := resolve(requestURL, info.MetaRefresh)
			if err != nil {
				f.logger.Debug("ignoring meta refresh", "url", requestURL, "target", info.MetaRefresh, "error", err.Error())
			} else if target != requestURL {
				return domain.RedirectResult(resp.StatusCode, target, domain.ViaMetaRefresh)
			}
		}
	}

	return domain.FinalPageResult(resp.StatusCode, page)
}

// resolve convierte un destino (posiblemente relativo) en URL absoluta http(s).
func resolve(base, ref string) (string, error) {
	baseURL, err := validator.ParseWebURL(base)
	if err != nil {
		return "", err
	}
	target, err := baseURL.Parse(ref)
	if err != nil {
		return "", errors.Mark(errors.ErrInvalidResponse, errors.Wrapf(err, "redirect target %q", ref))
	}
	target.Fragment = ""
	if _, err := validator.ParseWebURL(target.String()); err != nil {
		return "", errors.Wrapf(errors.ErrInvalidResponse, "redirect target %q: %s", ref, err.Error())
	}
	return target.String(), nil
}

// isRedirect: cualquier 3xx salvo 304 puede llevar Location.
func isRedirect(status int) bool {
	return status >= 300 && status < 400 && status != http.StatusNotModified
}

func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
