package abac

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CompositeColumn adapts a Composite to a Postgres composite-array column
// (abac_attribute[]), so GORM can read/write Edge.Inbound/Outbound and
// Policy.Subject/Object/Action directly as struct fields instead of a
// side table. The wire format matches Postgres's array-of-composite
// literal: {"(ns,key,value)","(ns,key,value)"}.
type CompositeColumn Composite

// Scan implements sql.Scanner.
func (c *CompositeColumn) Scan(src any) error {
	if src == nil {
		*c = nil
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("abac: CompositeColumn.Scan: unsupported type %T", src)
	}
	attrs, err := parseCompositeArray(raw)
	if err != nil {
		return fmt.Errorf("abac: CompositeColumn.Scan: %w", err)
	}
	*c = CompositeColumn(attrs)
	return nil
}

// Value implements driver.Valuer.
func (c CompositeColumn) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(c))
	for _, a := range c {
		parts = append(parts, fmt.Sprintf(`"(%s,%s,%s)"`, a.NamespaceID, escapeComponent(a.Key), escapeComponent(a.Value)))
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

func escapeComponent(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// parseCompositeArray is a small, purpose-built parser for the subset of
// Postgres array-of-composite literal syntax this column ever emits: a
// top-level {...} array whose elements are quoted (ns,key,value) tuples
// with backslash-escaped quotes. It intentionally does not attempt to
// handle the general array/composite grammar.
func parseCompositeArray(raw string) ([]Attribute, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		return nil, fmt.Errorf("malformed array literal %q", raw)
	}
	body := raw[1 : len(raw)-1]

	var attrs []Attribute
	var cur strings.Builder
	depth := 0
	inQuotes := false
	flush := func() error {
		tuple := strings.TrimSpace(cur.String())
		cur.Reset()
		if tuple == "" {
			return nil
		}
		tuple = strings.Trim(tuple, `"`)
		tuple = strings.ReplaceAll(tuple, `\"`, `"`)
		tuple = strings.ReplaceAll(tuple, `\\`, `\`)
		tuple = strings.TrimPrefix(tuple, "(")
		tuple = strings.TrimSuffix(tuple, ")")
		fields := strings.SplitN(tuple, ",", 3)
		if len(fields) != 3 {
			return fmt.Errorf("malformed composite element %q", tuple)
		}
		ns, err := uuid.Parse(fields[0])
		if err != nil {
			return fmt.Errorf("malformed namespace id %q: %w", fields[0], err)
		}
		attrs = append(attrs, Attribute{NamespaceID: ns, Key: fields[1], Value: fields[2]})
		return nil
	}
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '"' && (i == 0 || body[i-1] != '\\'):
			inQuotes = !inQuotes
			cur.WriteByte(ch)
		case ch == '(' && !inQuotes:
			depth++
			cur.WriteByte(ch)
		case ch == ')' && !inQuotes:
			depth--
			cur.WriteByte(ch)
		case ch == ',' && !inQuotes && depth == 0:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return attrs, nil
}

// StringArray adapts a []string to a Postgres text[] column, used for the
// per-account refresh-token secrets (keys[0] is always the active secret).
type StringArray []string

func (a *StringArray) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("abac: StringArray.Scan: unsupported type %T", src)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		*a = nil
		return nil
	}
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	parts := strings.Split(raw, ",")
	out := make(StringArray, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		out = append(out, p)
	}
	*a = out
	return nil
}

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	quoted := make([]string, len(a))
	for i, s := range a {
		quoted[i] = strconv.Quote(s)
	}
	return "{" + strings.Join(quoted, ",") + "}", nil
}
