// Package bcvwp encodes and decodes Book-Chapter-Verse-Word-Part references.
//
// A reference is a fixed-width digit string: 2 digits book, 3 chapter,
// 3 verse, 3 word and 1 part. Prefixed by a side tag it is the storage key
// of a word, and its lexicographic order is the canonical word order.
package bcvwp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field names a truncation point in a reference string. Each value is the
// length of the reference up to and including that field.
type Field int

const (
	FieldBook    Field = 2
	FieldChapter Field = 5
	FieldVerse   Field = 8
	FieldWord    Field = 11
	FieldPart    Field = 12
)

// Prefix lengths of a reference string. Word-level grouping of link text
// uses WordKeyLength, so both must track the layout above.
const (
	VerseKeyLength = int(FieldVerse)
	WordKeyLength  = int(FieldWord)
)

// ErrMalformedReference is returned by Parse for strings that are not
// reference strings.
var ErrMalformedReference = errors.New("malformed reference")

var legacyPrefix = regexp.MustCompile(`^[onON]\d`)

// Coordinate is an immutable BCVWP position. A zero field is unspecified.
// Book is 1-based; see BookInfo for the table lookup.
type Coordinate struct {
	Book    int
	Chapter int
	Verse   int
	Word    int
	Part    int
}

// New builds a coordinate from its fields.
func New(book, chapter, verse, word, part int) Coordinate {
	return Coordinate{Book: book, Chapter: chapter, Verse: verse, Word: word, Part: part}
}

// Sanitize trims whitespace and drops a single leading o/n marker that
// legacy corpora put in front of word ids ("o010010010011" → "010010010011").
func Sanitize(ref string) string {
	trimmed := strings.TrimSpace(ref)
	if legacyPrefix.MatchString(trimmed) {
		return trimmed[1:]
	}
	return trimmed
}

// Parse decodes a reference string of digits. Trailing segments that are
// missing from the string are left unspecified. Whitespace and legacy
// markers are rejected; run Sanitize first on untrusted ids.
func Parse(ref string) (Coordinate, error) {
	if len(ref) < int(FieldBook) {
		return Coordinate{}, fmt.Errorf("%w: %q is too short", ErrMalformedReference, ref)
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return Coordinate{}, fmt.Errorf("%w: %q contains non-digit %q", ErrMalformedReference, ref, r)
		}
	}

	var c Coordinate
	c.Book = atoi(ref[0:2])
	if len(ref) >= int(FieldChapter) {
		c.Chapter = atoi(ref[2:5])
	}
	if len(ref) >= int(FieldVerse) {
		c.Verse = atoi(ref[5:8])
	}
	if len(ref) >= int(FieldWord) {
		c.Word = atoi(ref[8:11])
	}
	if len(ref) >= int(FieldPart) {
		c.Part = atoi(ref[11:12])
	}
	return c, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(ref string) Coordinate {
	c, err := Parse(ref)
	if err != nil {
		panic(err)
	}
	return c
}

func atoi(s string) int {
	// s is digits only and at most 3 long.
	n, _ := strconv.Atoi(s)
	return n
}

// String renders the fixed-width reference. Unspecified book, chapter,
// verse and word are rendered as spaces; an unspecified part renders as 1.
func (c Coordinate) String() string {
	var b strings.Builder
	b.Grow(int(FieldPart))
	pad(&b, c.Book, 2)
	pad(&b, c.Chapter, 3)
	pad(&b, c.Verse, 3)
	pad(&b, c.Word, 3)
	part := c.Part
	if part == 0 {
		part = 1
	}
	b.WriteString(strconv.Itoa(part % 10))
	return b.String()
}

func pad(b *strings.Builder, v, width int) {
	if v == 0 {
		b.WriteString(strings.Repeat(" ", width))
		return
	}
	fmt.Fprintf(b, "%0*d", width, v)
}

// Truncate returns the reference string cut at field.
func (c Coordinate) Truncate(field Field) string {
	return c.String()[:field]
}

// VerseKey is the book+chapter+verse prefix of the reference.
func (c Coordinate) VerseKey() string {
	return c.Truncate(FieldVerse)
}

// IsComplete reports whether every field is specified.
func (c Coordinate) IsComplete() bool {
	return c.Book != 0 && c.Chapter != 0 && c.Verse != 0 && c.Word != 0 && c.Part != 0
}

// Has reports whether all the given fields are specified.
func (c Coordinate) Has(fields ...Field) bool {
	for _, f := range fields {
		var v int
		switch f {
		case FieldBook:
			v = c.Book
		case FieldChapter:
			v = c.Chapter
		case FieldVerse:
			v = c.Verse
		case FieldWord:
			v = c.Word
		case FieldPart:
			v = c.Part
		default:
			return false
		}
		if v == 0 {
			return false
		}
	}
	return true
}

// Matches reports whether both coordinates agree up to field.
func (c Coordinate) Matches(other Coordinate, field Field) bool {
	return c.Truncate(field) == other.Truncate(field)
}

// BookInfo looks up the book table entry for the 1-based Book value.
func (c Coordinate) BookInfo() (Book, bool) {
	if c.Book == 0 {
		return Book{}, false
	}
	return BookByIndex(c.Book - 1)
}

// Compare orders coordinates field by field, unspecified first.
func Compare(a, b Coordinate) int {
	for _, d := range [...]int{
		a.Book - b.Book,
		a.Chapter - b.Chapter,
		a.Verse - b.Verse,
		a.Word - b.Word,
		a.Part - b.Part,
	} {
		if d != 0 {
			return d
		}
	}
	return 0
}

// HumanString renders "Genesis 1:1 3/1" style labels.
func (c Coordinate) HumanString() string {
	name := ""
	if b, ok := c.BookInfo(); ok {
		name = b.Name
	}
	chapter, verse := "NA", "NA"
	if c.Chapter != 0 {
		chapter = strconv.Itoa(c.Chapter)
	}
	if c.Verse != 0 {
		verse = strconv.Itoa(c.Verse)
	}
	out := fmt.Sprintf("%s %s:%s", name, chapter, verse)
	if c.Word != 0 {
		out += " " + strconv.Itoa(c.Word)
		if c.Part != 0 {
			out += "/" + strconv.Itoa(c.Part)
		}
	}
	return strings.TrimSpace(out)
}
