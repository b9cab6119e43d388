// Package command parses Groonga commands in URL or command-line form.
package command

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrEmpty is returned when the command text has no command name.
var ErrEmpty = errors.New("empty command")

// Command is a parsed engine command such as "load --table Data" or
// "/d/load?table=Data".
type Command struct {
	Name string

	args  map[string]string
	order []string
}

// argumentNames lists positional argument names for the commands the crash
// checker cares about. Positional values beyond the list are dropped.
var argumentNames = map[string][]string{
	"load":              {"values", "table", "columns", "ifexists", "input_type", "each", "output_ids", "lock_table"},
	"delete":            {"table", "key", "id", "filter", "limit"},
	"truncate":          {"target_name"},
	"io_flush":          {"target_name", "recursive", "only_opened"},
	"table_create":      {"name", "flags", "key_type", "value_type", "default_tokenizer", "normalizer", "token_filters"},
	"table_remove":      {"name", "dependent"},
	"table_rename":      {"name", "new_name"},
	"table_copy":        {"from_name", "to_name"},
	"table_list":        {"prefix"},
	"column_create":     {"table", "name", "flags", "type", "source"},
	"column_remove":     {"table", "name"},
	"column_rename":     {"table", "name", "new_name"},
	"column_copy":       {"from_table", "from_name", "to_table", "to_name"},
	"column_list":       {"table"},
	"plugin_register":   {"name"},
	"plugin_unregister": {"name"},
	"select":            {"table", "match_columns", "query", "filter", "scorer", "sortby", "output_columns", "offset", "limit"},
	"status":            {},
	"database_unmap":    {},
}

// New builds a command from a name and ordered name/value pairs.
func New(name string, pairs ...string) *Command {
	c := &Command{Name: name, args: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		c.set(pairs[i], pairs[i+1])
	}
	return c
}

// Parse parses raw command text in either the HTTP path form or the
// command-line form.
func Parse(raw string) (*Command, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmpty
	}
	if strings.HasPrefix(raw, "/") {
		return parseURL(raw)
	}
	return parseCommandLine(raw)
}

func parseURL(raw string) (*Command, error) {
	p, query, _ := strings.Cut(raw, "?")
	name := path.Base(p)
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "/" || name == "." {
		return nil, ErrEmpty
	}
	c := New(name)
	if query == "" {
		return c, nil
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("unescape argument name %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("unescape argument %q: %w", key, err)
		}
		c.set(key, value)
	}
	return c, nil
}

func parseCommandLine(raw string) (*Command, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, ErrEmpty
	}
	c := New(tokens[0])
	names := argumentNames[c.Name]
	positional := 0
	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		if strings.HasPrefix(tok, "--") && len(tok) > 2 {
			key := tok[2:]
			value := ""
			if i+1 < len(tokens) {
				i++
				value = tokens[i]
			}
			c.set(key, value)
			continue
		}
		if positional < len(names) {
			c.set(names[positional], tok)
		}
		positional++
	}
	return c, nil
}

// tokenize splits command-line text on whitespace, honoring single and
// double quotes and backslash escapes.
func tokenize(s string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			switch r {
			case 'n':
				current.WriteRune('\n')
			case 't':
				current.WriteRune('\t')
			default:
				current.WriteRune(r)
			}
			escaped = false
		case r == '\\':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

func (c *Command) set(key, value string) {
	if c.args == nil {
		c.args = make(map[string]string)
	}
	if _, ok := c.args[key]; !ok {
		c.order = append(c.order, key)
	}
	c.args[key] = value
}

// Arg returns the named argument and whether it was given.
func (c *Command) Arg(name string) (string, bool) {
	v, ok := c.args[name]
	return v, ok
}

// Table returns the "table" argument, or "" when absent.
func (c *Command) Table() string {
	return c.args["table"]
}

// TargetName returns the "target_name" argument. truncate also accepts the
// legacy "table" argument.
func (c *Command) TargetName() (string, bool) {
	if v, ok := c.args["target_name"]; ok {
		return v, true
	}
	if c.Name == "truncate" {
		return c.Arg("table")
	}
	return "", false
}

// Recursive reports the io_flush "recursive" argument. The engine treats
// anything but "no" as yes.
func (c *Command) Recursive() bool {
	return c.args["recursive"] != "no"
}

// Format renders the command in command-line form. With pretty set, each
// argument goes on its own continuation line.
func (c *Command) Format(pretty bool) string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, key := range c.order {
		if pretty {
			b.WriteString(" \\\n  ")
		} else {
			b.WriteString(" ")
		}
		b.WriteString("--")
		b.WriteString(key)
		b.WriteString(" ")
		b.WriteString(quoteValue(c.args[key]))
	}
	return b.String()
}

func (c *Command) String() string {
	return c.Format(false)
}

var valueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quoteValue(v string) string {
	return `"` + valueEscaper.Replace(v) + `"`
}
