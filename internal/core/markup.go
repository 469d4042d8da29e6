package core

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/valter-silva-au/supportbot/pkg/models"
)

// ErrUnsafeMarkup is returned when text carries markup other than
// allow-listed anchors.
var ErrUnsafeMarkup = errors.New("unsafe markup")

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

var allowedAnchorAttrs = map[string]bool{"href": true, "target": true, "rel": true, "title": true}

// ParseMarkup converts text containing <a href="...">label</a> anchors into
// RichText. Any other element, nested anchors, or a link whose scheme is not
// http, https, or mailto yields ErrUnsafeMarkup.
func ParseMarkup(text string) (models.RichText, error) {
	var (
		rich     models.RichText
		inAnchor bool
		href     string
		label    strings.Builder
	)

	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				if inAnchor {
					return nil, fmt.Errorf("%w: unterminated anchor", ErrUnsafeMarkup)
				}
				return rich, nil
			}
			return nil, fmt.Errorf("parsing markup: %w", z.Err())

		case html.TextToken:
			if inAnchor {
				label.Write(z.Text())
				continue
			}
			rich = appendText(rich, string(z.Text()))

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || inAnchor {
				return nil, fmt.Errorf("%w: <%s>", ErrUnsafeMarkup, name)
			}
			target, err := anchorHref(z, hasAttr)
			if err != nil {
				return nil, err
			}
			inAnchor, href = true, target
			label.Reset()

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "a" || !inAnchor {
				return nil, fmt.Errorf("%w: </%s>", ErrUnsafeMarkup, name)
			}
			rich = append(rich, models.Span{Kind: models.SpanLink, Text: label.String(), URL: href})
			inAnchor = false

		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsafeMarkup, z.Raw())
		}
	}
}

// ToRichText is ParseMarkup for scripted text; on failure the input is
// returned verbatim as a single text span.
func ToRichText(text string) models.RichText {
	rich, err := ParseMarkup(text)
	if err != nil {
		return models.RichText{{Kind: models.SpanText, Text: text}}
	}
	return rich
}

func anchorHref(z *html.Tokenizer, hasAttr bool) (string, error) {
	var href string
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if !allowedAnchorAttrs[string(key)] {
			return "", fmt.Errorf("%w: attribute %q", ErrUnsafeMarkup, key)
		}
		if string(key) == "href" {
			href = string(val)
		}
	}
	u, err := url.Parse(href)
	if href == "" || err != nil || !allowedSchemes[strings.ToLower(u.Scheme)] {
		return "", fmt.Errorf("%w: link %q", ErrUnsafeMarkup, href)
	}
	return href, nil
}

func appendText(rich models.RichText, text string) models.RichText {
	if text == "" {
		return rich
	}
	if n := len(rich); n > 0 && rich[n-1].Kind == models.SpanText {
		rich[n-1].Text += text
		return rich
	}
	return append(rich, models.Span{Kind: models.SpanText, Text: text})
}
