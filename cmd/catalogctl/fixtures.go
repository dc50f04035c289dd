package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

//go:embed fixtures/library.json
var defaultFixture []byte

var errUnknownReference = errors.New("fixture references an unknown entity")

type codeAndName struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type publisherFixture struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

type personFixture struct {
	FullName  string `json:"fullName"`
	BirthYear *int   `json:"birthYear,omitempty"`
	DeathYear *int   `json:"deathYear,omitempty"`
	Country   string `json:"country,omitempty"`
}

type bookFixture struct {
	OriginalTitle        string   `json:"originalTitle"`
	OriginalLanguage     string   `json:"originalLanguage"`
	FirstPublicationYear int      `json:"firstPublicationYear"`
	Description          *string  `json:"description,omitempty"`
	Authors              []string `json:"authors"`
	Genres               []string `json:"genres"`
}

type editionFixture struct {
	ISBN            *string  `json:"isbn,omitempty"`
	Title           string   `json:"title"`
	Book            string   `json:"book"`
	Language        string   `json:"language"`
	PageCount       int      `json:"pageCount"`
	ShelfLocation   string   `json:"shelfLocation"`
	TotalCopies     int      `json:"totalCopies"`
	Publisher       string   `json:"publisher,omitempty"`
	PublicationYear int      `json:"publicationYear"`
	Translators     []string `json:"translators,omitempty"`
}

type readerFixture struct {
	LibraryCardNumber string  `json:"libraryCardNumber"`
	FullName          string  `json:"fullName"`
	EmailAddress      *string `json:"emailAddress,omitempty"`
	PhoneNumber       *string `json:"phoneNumber,omitempty"`
}

// fixture references other entities by code (languages, countries) or by name.
type fixture struct {
	Languages   []codeAndName      `json:"languages"`
	Countries   []codeAndName      `json:"countries"`
	Genres      []string           `json:"genres"`
	Publishers  []publisherFixture `json:"publishers"`
	Authors     []personFixture    `json:"authors"`
	Translators []personFixture    `json:"translators"`
	Books       []bookFixture      `json:"books"`
	Editions    []editionFixture   `json:"editions"`
	Readers     []readerFixture    `json:"readers"`
}

func decodeFixture(r io.Reader) (fixture, error) {
	var f fixture
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(&f); err != nil {
		return fixture{}, fmt.Errorf("decode fixture: %w", err)
	}

	return f, f.validate()
}

// validate checks that every reference resolves inside the fixture itself.
func (f fixture) validate() error {
	languages := keys(f.Languages, func(l codeAndName) string { return l.Code })
	countries := keys(f.Countries, func(c codeAndName) string { return c.Code })
	genres := keys(f.Genres, func(g string) string { return g })
	publishers := keys(f.Publishers, func(p publisherFixture) string { return p.Name })
	authors := keys(f.Authors, func(a personFixture) string { return a.FullName })
	translators := keys(f.Translators, func(t personFixture) string { return t.FullName })
	books := keys(f.Books, func(b bookFixture) string { return b.OriginalTitle })

	var errs []error
	check := func(set map[string]struct{}, kind, ref, owner string) {
		if _, ok := set[ref]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s %q in %q", errUnknownReference, kind, ref, owner))
		}
	}

	for _, p := range f.Publishers {
		if p.Country != "" {
			check(countries, "country", p.Country, p.Name)
		}
	}

	for _, a := range f.Authors {
		check(countries, "country", a.Country, a.FullName)
	}

	for _, t := range f.Translators {
		if t.Country != "" {
			check(countries, "country", t.Country, t.FullName)
		}
	}

	for _, b := range f.Books {
		check(languages, "language", b.OriginalLanguage, b.OriginalTitle)
		for _, a := range b.Authors {
			check(authors, "author", a, b.OriginalTitle)
		}
		for _, g := range b.Genres {
			check(genres, "genre", g, b.OriginalTitle)
		}
	}

	for _, e := range f.Editions {
		check(books, "book", e.Book, e.Title)
		check(languages, "language", e.Language, e.Title)
		if e.Publisher != "" {
			check(publishers, "publisher", e.Publisher, e.Title)
		}
		for _, t := range e.Translators {
			check(translators, "translator", t, e.Title)
		}
	}

	return errors.Join(errs...)
}

func keys[T any](items []T, key func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[key(item)] = struct{}{}
	}

	return set
}
