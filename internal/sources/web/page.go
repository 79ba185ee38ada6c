// internal/sources/web/page.go
package web

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

const maxTitleLen = 256

// pageInfo datos extraídos del HTML de una página.
type pageInfo struct {
	Title       string
	MetaRefresh string // destino crudo de <meta http-equiv="refresh">, sin resolver
}

// parsePage recorre el HTML con el tokenizer y extrae el título y el destino
// de meta refresh. Deja de leer al encontrar ambos o al cerrar <head>.
func parsePage(body []byte) pageInfo {
	var info pageInfo
	tokenizer := html.NewTokenizer(bytes.NewReader(body))

	inTitle := false
	var title strings.Builder

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			info.Title = cleanTitle(title.String())
			return info

		case html.TextToken:
			if inTitle && title.Len() < maxTitleLen*4 {
				title.Write(tokenizer.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				inTitle = tt == html.StartTagToken && info.Title == "" && title.Len() == 0
			case "meta":
				if info.MetaRefresh == "" {
					info.MetaRefresh = refreshTarget(token.Attr)
				}
			case "body":
				if info.MetaRefresh != "" || title.Len() > 0 {
					info.Title = cleanTitle(title.String())
					return info
				}
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data == "title" {
				inTitle = false
			}
		}
	}
}

// refreshTarget retorna la URL de un <meta http-equiv="refresh" content="0; url=...">.
func refreshTarget(attrs []html.Attribute) string {
	var equiv, content string
	for _, attr := range attrs {
		switch strings.ToLower(attr.Key) {
		case "http-equiv":
			equiv = attr.Val
		case "content":
			content = attr.Val
		}
	}
	if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
		return ""
	}
	return parseRefreshContent(content)
}

// parseRefreshContent interpreta "5", "0;url=/x", "0; URL='http://x'".
func parseRefreshContent(content string) string {
	_, rest, found := strings.Cut(content, ";")
	if !found {
		_, rest, found = strings.Cut(content, ",")
		if !found {
			return ""
		}
	}
	rest = strings.TrimSpace(rest)
	if len(rest) >= 3 && strings.EqualFold(rest[:3], "url") {
		after := strings.TrimSpace(rest[3:])
		if strings.HasPrefix(after, "=") {
			rest = strings.TrimSpace(after[1:])
		}
	}
	rest = strings.Trim(rest, `"'`)
	return strings.TrimSpace(rest)
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxTitleLen {
		s = s[:maxTitleLen]
	}
	return s
}
