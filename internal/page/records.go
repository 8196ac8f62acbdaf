// Package page knows the markup contract of a chapter page: where the book
// bar records live, which regions hold the chapter title and body, and how
// search highlights are marked up inside them.
package page

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/JohnDeved/bookbar/internal/catalog"
)

// Class names of the book bar and chapter regions.
const (
	classItem          = "w-dyn-item"
	classPartName      = "chapter-bar--part-name"
	classChapterNumber = "book-bar-chapter-number"
	classChapterLink   = "book-bar-chapter-link"
	classCurrent       = "w--current"
	classSummary       = "chapter--summary"
	classBody          = "book--richtext"
)

// The title region needs both classes.
var titleClasses = []string{"heading--29", "is--chapter-title"}

// ErrMalformedRecord marks a book bar item that is missing a field or has a
// non-numeric chapter number.
var ErrMalformedRecord = errors.New("malformed chapter record")

// ExtractRecords reads the flat list of chapter records from the book bar.
// Collection items that carry neither a part name nor a chapter link belong
// to some other list on the page and are skipped.
func ExtractRecords(doc *html.Node, baseURL string) ([]catalog.Record, error) {
	items := findAll(doc, byClass(classItem))

	var records []catalog.Record
	for i, item := range items {
		partEl := findFirst(item, byClass(classPartName))
		linkEl := findFirst(item, byClass(classChapterLink))
		if partEl == nil && linkEl == nil {
			continue
		}
		if partEl == nil {
			return nil, fmt.Errorf("%w: item %d has no part name", ErrMalformedRecord, i)
		}
		if linkEl == nil {
			return nil, fmt.Errorf("%w: item %d has no chapter link", ErrMalformedRecord, i)
		}

		numEl := findFirst(item, byClass(classChapterNumber))
		if numEl == nil {
			return nil, fmt.Errorf("%w: item %d has no chapter number", ErrMalformedRecord, i)
		}
		numText := strings.TrimSpace(textContent(numEl))
		number, err := strconv.Atoi(numText)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d chapter number %q", ErrMalformedRecord, i, numText)
		}

		href := strings.TrimSpace(attr(linkEl, "href"))
		if href == "" {
			return nil, fmt.Errorf("%w: item %d has an empty chapter link", ErrMalformedRecord, i)
		}
		ref, err := resolveURL(baseURL, href)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d link %q: %v", ErrMalformedRecord, i, href, err)
		}

		r := catalog.Record{
			PartName: strings.TrimSpace(textContent(partEl)),
			Number:   number,
			Ref:      ref,
			Title:    strings.TrimSpace(textContent(linkEl)),
		}
		if sumEl := findFirst(item, byClass(classSummary)); sumEl != nil {
			r.Summary = strings.TrimSpace(textContent(sumEl))
			r.HasSummary = true
		}
		records = append(records, r)
	}
	return records, nil
}

// CurrentRef returns the resolved link of the book bar entry marked as the
// page being displayed.
func CurrentRef(doc *html.Node, baseURL string) (string, bool) {
	link := findFirst(doc, byClass(classChapterLink, classCurrent))
	if link == nil {
		return "", false
	}
	ref, err := resolveURL(baseURL, strings.TrimSpace(attr(link, "href")))
	if err != nil {
		return "", false
	}
	return ref, true
}

// ExtractContent returns the text of the chapter title region and the
// concatenated text of every body region, each followed by a space.
func ExtractContent(doc *html.Node) (title, body string) {
	if t := findFirst(doc, byClass(titleClasses...)); t != nil {
		title = innerText(t)
	}
	var sb strings.Builder
	for _, region := range findAll(doc, byClass(classBody)) {
		sb.WriteString(innerText(region))
		sb.WriteByte(' ')
	}
	return title, sb.String()
}
