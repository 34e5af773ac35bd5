// Package render turns dataset rows into static HTML documents, a site
// index, a sitemap and the client-side rendering page.
//
// All output is deterministic: the same rows and options always produce the
// same bytes.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/hf-rowsite/pkg/client"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/style.css
var styleCSS string

//go:embed assets/dynamic.js
var dynamicJS string

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// EmptyState is shown in place of cards when there are no rows.
const EmptyState = "No rows."

// Untitled replaces a missing or empty title when a title field is configured.
const Untitled = "(untitled)"

// Fields names the row fields shown on a card. Only Text is required;
// an empty name hides that part of the card.
type Fields struct {
	Text  string `json:"text"`
	Title string `json:"title"`
	Lang  string `json:"lang"`
	Date  string `json:"date"`
	Link  string `json:"link"`
}

// DefaultFields matches the column names of the default dataset.
func DefaultFields() Fields {
	return Fields{
		Text:  "full_text",
		Title: "topic",
		Lang:  "lang",
		Date:  "date",
		Link:  "link",
	}
}

// Card is the display form of one row.
type Card struct {
	Title string
	Lang  string
	Date  string
	Text  string
	Link  string
}

// Renderer renders rows with a fixed field mapping.
type Renderer struct {
	fields Fields
}

// New creates a renderer. An empty Text field falls back to "full_text".
func New(fields Fields) *Renderer {
	if fields.Text == "" {
		fields.Text = DefaultFields().Text
	}
	return &Renderer{fields: fields}
}

// Fields returns the field mapping in use.
func (r *Renderer) Fields() Fields {
	return r.fields
}

// Cards converts rows to cards in order.
func (r *Renderer) Cards(rows []client.Row) []Card {
	cards := make([]Card, len(rows))
	for i, row := range rows {
		title := text(row, r.fields.Title)
		if title == "" && r.fields.Title != "" {
			title = Untitled
		}
		cards[i] = Card{
			Title: title,
			Lang:  strings.ToUpper(text(row, r.fields.Lang)),
			Date:  FormatDate(text(row, r.fields.Date)),
			Text:  row.Text(r.fields.Text),
			Link:  text(row, r.fields.Link),
		}
	}
	return cards
}

func text(row client.Row, field string) string {
	if field == "" {
		return ""
	}
	return row.Text(field)
}

// Unix seconds of 0001-01-01 and 9999-12-31T23:59:59 UTC.
const (
	minUnixDate = -62135596800
	maxUnixDate = 253402300799
)

// FormatDate renders unix-second timestamps (thousands separators allowed)
// as a UTC YYYY-MM-DD date. Any other value, including timestamps outside
// years 1-9999, is returned unchanged.
func FormatDate(v string) string {
	s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if s == "" {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < minUnixDate || f > maxUnixDate {
		return v
	}
	return time.Unix(int64(f), 0).UTC().Format("2006-01-02")
}

type pageData struct {
	Title     string
	SourceURL string
	CSS       template.CSS
	Footer    string
	Cards     []Card
	Prev      string
	Next      string
	Pages     []PageLink
	Config    template.JS
	Script    template.JS
}

// DocumentData is the input of the static builder's single document.
type DocumentData struct {
	Title     string
	SourceURL string
	Rows      []client.Row
}

// Document renders every row into one static HTML document.
func (r *Renderer) Document(w io.Writer, d DocumentData) error {
	return execute(w, "document", pageData{
		Title:     d.Title,
		SourceURL: d.SourceURL,
		CSS:       template.CSS(styleCSS),
		Footer:    fmt.Sprintf("%d rows. This page is static (no JS) for easy crawling.", len(d.Rows)),
		Cards:     r.Cards(d.Rows),
	})
}

// PageData is one page of a multi-page site.
type PageData struct {
	Title     string
	SourceURL string
	Rows      []client.Row
	// Prev and Next are relative links to neighbouring pages, empty at the ends.
	Prev string
	Next string
}

// Page renders one page of a multi-page site.
func (r *Renderer) Page(w io.Writer, d PageData) error {
	return execute(w, "page", pageData{
		Title:     d.Title,
		SourceURL: d.SourceURL,
		CSS:       template.CSS(styleCSS),
		Footer:    "This page is static (no JS) for easy crawling.",
		Cards:     r.Cards(d.Rows),
		Prev:      d.Prev,
		Next:      d.Next,
	})
}

// PageLink is one index entry.
type PageLink struct {
	Number int
	Href   string
	Rows   int
}

// IndexData is the site index.
type IndexData struct {
	Title     string
	SourceURL string
	Pages     []PageLink
}

// Index renders the page listing of a multi-page site.
func (r *Renderer) Index(w io.Writer, d IndexData) error {
	return execute(w, "index", pageData{
		Title:     d.Title,
		SourceURL: d.SourceURL,
		CSS:       template.CSS(styleCSS),
		Footer:    "This index links to static pages for easy crawling.",
		Pages:     d.Pages,
	})
}

// DynamicData configures the client-side rendering page.
type DynamicData struct {
	Title     string
	SourceURL string
	APIURL    string
	Dataset   client.Dataset
	Pages     []int
	PerPage   int
}

type dynamicConfig struct {
	APIURL  string `json:"apiUrl"`
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
	Pages   []int  `json:"pages"`
	PerPage int    `json:"perPage"`
	Fields  Fields `json:"fields"`
}

// Dynamic renders a page whose script fetches and renders the rows in the browser.
func (r *Renderer) Dynamic(w io.Writer, d DynamicData) error {
	pages := d.Pages
	if pages == nil {
		pages = []int{}
	}
	cfg, err := json.Marshal(dynamicConfig{
		APIURL:  d.APIURL,
		Dataset: d.Dataset.Name,
		Config:  d.Dataset.Config,
		Split:   d.Dataset.Split,
		Pages:   pages,
		PerPage: d.PerPage,
		Fields:  r.fields,
	})
	if err != nil {
		return fmt.Errorf("marshal page config: %w", err)
	}

	return execute(w, "dynamic", pageData{
		Title:     d.Title,
		SourceURL: d.SourceURL,
		CSS:       template.CSS(styleCSS),
		Footer:    "Rows are loaded in your browser from the dataset-server.",
		Config:    template.JS(cfg),
		Script:    template.JS(dynamicJS),
	})
}

// execute renders into a buffer first so w never sees a partial document.
func execute(w io.Writer, name string, data pageData) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
