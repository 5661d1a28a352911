package adoc

import (
	"regexp"
	"strconv"
	"strings"
)

// Author is a document author derived from the author line or the
// author attributes. Authors returns copies, so edits do not reach the
// document.
type Author struct {
	Name       string
	FirstName  string
	MiddleName string
	LastName   string
	Initials   string
	Email      string
}

var authorInfoRx = regexp.MustCompile(`^([\p{L}\p{N}_][\p{L}\p{N}_\-'.]*)(?: +([\p{L}\p{N}_][\p{L}\p{N}_\-'.]*))?(?: +([\p{L}\p{N}_][\p{L}\p{N}_\-'.]*))?(?: +<([^>]+)>)?$`)

// parseAuthor parses one "First Middle Last <email>" entry. Underscores
// join words that belong to the same name part.
func parseAuthor(entry string) Author {
	entry = strings.Join(strings.Fields(entry), " ")
	m := authorInfoRx.FindStringSubmatch(entry)
	if m == nil {
		a := Author{Name: entry, FirstName: entry}
		email := ""
		if i := strings.Index(entry, " <"); i >= 0 && strings.HasSuffix(entry, ">") {
			email = entry[i+2 : len(entry)-1]
			entry = entry[:i]
			a = Author{Name: entry, FirstName: entry, Email: email}
		}
		if entry != "" {
			a.Initials = string([]rune(entry)[:1])
		}
		return a
	}
	unscore := func(s string) string { return strings.ReplaceAll(s, "_", " ") }
	a := Author{FirstName: unscore(m[1]), Email: m[4]}
	switch {
	case m[3] != "":
		a.MiddleName = unscore(m[2])
		a.LastName = unscore(m[3])
	case m[2] != "":
		a.LastName = unscore(m[2])
	}
	parts := []string{a.FirstName}
	initials := firstRune(a.FirstName)
	if a.MiddleName != "" {
		parts = append(parts, a.MiddleName)
		initials += firstRune(a.MiddleName)
	}
	if a.LastName != "" {
		parts = append(parts, a.LastName)
		initials += firstRune(a.LastName)
	}
	a.Name = strings.Join(parts, " ")
	a.Initials = initials
	return a
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// parseAuthorLine splits a header author line on semicolons.
func parseAuthorLine(line string) []Author {
	var authors []Author
	for _, entry := range strings.Split(line, ";") {
		if entry = strings.TrimSpace(entry); entry != "" {
			authors = append(authors, parseAuthor(entry))
		}
	}
	return authors
}

// authorAttributes returns the attributes derived from authors. The first
// author is also exposed under the unsuffixed names.
func authorAttributes(authors []Author) map[string]string {
	attrs := map[string]string{}
	if len(authors) == 0 {
		return attrs
	}
	names := make([]string, 0, len(authors))
	for i, a := range authors {
		suffix := "_" + strconv.Itoa(i+1)
		set := func(key, value string) {
			if value == "" {
				return
			}
			attrs[key+suffix] = value
			if i == 0 {
				attrs[key] = value
			}
		}
		set("author", a.Name)
		set("firstname", a.FirstName)
		set("middlename", a.MiddleName)
		set("lastname", a.LastName)
		set("authorinitials", a.Initials)
		set("email", a.Email)
		names = append(names, a.Name)
	}
	attrs["authorcount"] = strconv.Itoa(len(authors))
	attrs["authors"] = strings.Join(names, ", ")
	return attrs
}

// authorsFromAttributes rebuilds authors from author/author_N and
// email/email_N attributes defined without an author line.
func authorsFromAttributes(attrs map[string]string) []Author {
	if names, ok := attrs["authors"]; ok && names != "" && attrs["author_1"] == "" {
		if _, single := attrs["author"]; !single {
			var authors []Author
			for _, n := range strings.Split(names, ",") {
				if n = strings.TrimSpace(n); n != "" {
					authors = append(authors, parseAuthor(n))
				}
			}
			return authors
		}
	}
	if _, ok := attrs["author_1"]; ok {
		var authors []Author
		for i := 1; ; i++ {
			suffix := "_" + strconv.Itoa(i)
			name, ok := attrs["author"+suffix]
			if !ok {
				break
			}
			a := parseAuthor(name)
			if email := attrs["email"+suffix]; email != "" {
				a.Email = email
			}
			authors = append(authors, a)
		}
		return authors
	}
	if name, ok := attrs["author"]; ok && name != "" {
		authors := parseAuthorLine(name)
		if len(authors) == 1 && attrs["email"] != "" {
			authors[0].Email = attrs["email"]
		}
		return authors
	}
	return nil
}
