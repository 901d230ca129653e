package feeds

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source is one RSS/Atom feed listed in the OPML file.
type Source struct {
	Title   string
	XMLURL  string
	HTMLURL string
}

type opmlDocument struct {
	Body struct {
		Outlines []opmlOutline `xml:"outline"`
	} `xml:"body"`
}

type opmlOutline struct {
	Type     string        `xml:"type,attr"`
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML returns every outline of type rss that has an xmlUrl, at any
// nesting depth, in document order.
func ParseOPML(r io.Reader) ([]Source, error) {
	var doc opmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var sources []Source
	var walk func([]opmlOutline)
	walk = func(outlines []opmlOutline) {
		for _, o := range outlines {
			if strings.EqualFold(o.Type, "rss") && o.XMLURL != "" {
				sources = append(sources, Source{
					Title:   sourceTitle(o),
					XMLURL:  o.XMLURL,
					HTMLURL: o.HTMLURL,
				})
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)

	return sources, nil
}

// LoadOPML reads sources from an OPML file
func LoadOPML(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OPML file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ParseOPML(f)
}

func sourceTitle(o opmlOutline) string {
	switch {
	case o.Title != "":
		return o.Title
	case o.Text != "":
		return o.Text
	default:
		return "Unknown"
	}
}
