package storage

import (
	"strconv"
	"strings"
)

type dialect struct {
	name string
	// numbered switches ? placeholders to $1, $2, ...
	numbered bool
}

func dialectFor(name string) dialect {
	return dialect{name: name, numbered: name == DriverPostgres}
}

func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// blobType is the binary column type of the dialect.
func (d dialect) blobType() string {
	if d.name == DriverPostgres {
		return "BYTEA"
	}
	return "BLOB"
}
