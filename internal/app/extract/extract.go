// Package extract implements the field-extraction engine used to pull
// structured metadata out of storefront HTML whose markup is not a contract.
//
// A field is described by an ordered FieldSpec: a list of independent
// strategies, most specific first. Each strategy inspects a document fragment
// and returns a string, or "" when it cannot find its target. The engine
// returns the first non-empty result, so a markup change degrades one
// strategy's ranking instead of breaking the whole adapter.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is a pure function from a document fragment to a candidate value.
// Strategies never error; absence and unparsable input both yield "".
type Strategy func(sel *goquery.Selection) string

// FieldSpec is an ordered list of strategies for one field, decreasing in
// specificity.
type FieldSpec []Strategy

// First evaluates the spec in order and returns the first non-empty,
// whitespace-trimmed result.
func First(sel *goquery.Selection, spec FieldSpec) string {
	if sel == nil {
		return ""
	}
	for _, strategy := range spec {
		if strategy == nil {
			continue
		}
		if v := strings.TrimSpace(strategy(sel)); v != "" {
			return v
		}
	}
	return ""
}

// Text returns the text of the first element matching selector.
func Text(selector string) Strategy {
	return func(sel *goquery.Selection) string {
		return sel.Find(selector).First().Text()
	}
}

// Attr returns the named attribute of the first element matching selector.
func Attr(selector, attr string) Strategy {
	return func(sel *goquery.Selection) string {
		v, _ := sel.Find(selector).First().Attr(attr)
		return v
	}
}

// FirstText returns the text of the first element matching selector that has
// non-empty text, skipping earlier empty matches.
func FirstText(selector string) Strategy {
	return func(sel *goquery.Selection) string {
		found := ""
		sel.Find(selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if text := strings.TrimSpace(node.Text()); text != "" {
				found = text
				return false
			}
			return true
		})
		return found
	}
}

// AttrSubmatch returns the first capture group of re applied to the named
// attribute of the first matching element.
func AttrSubmatch(selector, attr string, re *regexp.Regexp) Strategy {
	return func(sel *goquery.Selection) string {
		v, ok := sel.Find(selector).First().Attr(attr)
		if !ok {
			return ""
		}
		m := re.FindStringSubmatch(v)
		if len(m) < 2 {
			return ""
		}
		return m[1]
	}
}

// LeafText returns the nth (zero-based) non-empty leaf text within the
// fragment, skipping script and style elements. This is the positional
// fallback for layouts where content sits in anonymous nested divs.
func LeafText(n int) Strategy {
	return func(sel *goquery.Selection) string {
		found := ""
		count := 0
		sel.Find("*").EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if node.Children().Length() > 0 {
				return true
			}
			if node.Is("script") || node.Is("style") {
				return true
			}
			text := strings.TrimSpace(node.Text())
			if text == "" {
				return true
			}
			if count == n {
				found = text
				return false
			}
			count++
			return true
		})
		return found
	}
}

// ImageSource returns the source URL of the first image matching selector,
// preferring the first srcset entry, then data-src (lazy-loaded layouts),
// then src.
func ImageSource(selector string) Strategy {
	return func(sel *goquery.Selection) string {
		img := sel.Find(selector).First()
		if img.Length() == 0 {
			return ""
		}
		if srcset, ok := img.Attr("srcset"); ok {
			if fields := strings.Fields(srcset); len(fields) > 0 {
				return fields[0]
			}
		}
		if dataSrc, ok := img.Attr("data-src"); ok && strings.TrimSpace(dataSrc) != "" {
			return dataSrc
		}
		v, _ := img.Attr("src")
		return v
	}
}
