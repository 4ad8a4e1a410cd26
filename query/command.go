package query

import (
	"fmt"
	"slices"
	"strconv"
)

// Param is one key/value pair of a command parameter group.
//
// Value may be nil (the bare key is sent), a string, a Value, any integer or
// float type, a bool (sent as 1 or 0) or a fmt.Stringer.
type Param struct {
	Key   string
	Value any
}

// P is shorthand for Param{Key: key, Value: value}.
func P(key string, value any) Param {
	return Param{Key: key, Value: value}
}

// Params is an ordered parameter group.
type Params []Param

// Command is a verb with parameter groups and option flags.
//
// Commands are values: the With* methods return modified copies and never
// touch the receiver, so a Command can be shared after construction.
type Command struct {
	verb   string
	groups []Params
	flags  []string
}

// NewCommand creates a command. When params are given they form the first
// parameter group.
//
// Usage:
//
//	cmd := NewCommand("clientkick", P("reasonid", 5), P("reasonmsg", "bye")).
//		WithGroup(P("clid", 1)).
//		WithGroup(P("clid", 2))
//
//	cmd = NewCommand("clientlist").WithFlags("-uid", "-away")
func NewCommand(verb string, params ...Param) Command {
	cmd := Command{verb: verb}
	if len(params) > 0 {
		cmd.groups = []Params{slices.Clone(Params(params))}
	}
	return cmd
}

// WithGroup returns a copy of c with an additional parameter group.
func (c Command) WithGroup(params ...Param) Command {
	out := c.clone()
	out.groups = append(out.groups, slices.Clone(Params(params)))
	return out
}

// WithParams returns a copy of c with params appended to the last group.
func (c Command) WithParams(params ...Param) Command {
	out := c.clone()
	if len(out.groups) == 0 {
		out.groups = []Params{nil}
	}
	last := len(out.groups) - 1
	out.groups[last] = append(out.groups[last], params...)
	return out
}

// WithFlags returns a copy of c with option flags (e.g. "-uid") appended.
func (c Command) WithFlags(flags ...string) Command {
	out := c.clone()
	out.flags = append(out.flags, flags...)
	return out
}

func (c Command) clone() Command {
	groups := make([]Params, len(c.groups))
	for i, g := range c.groups {
		groups[i] = slices.Clone(g)
	}
	return Command{
		verb:   c.verb,
		groups: groups,
		flags:  slices.Clone(c.flags),
	}
}

// Verb returns the command name.
func (c Command) Verb() string {
	return c.verb
}

// Groups returns a copy of the parameter groups.
func (c Command) Groups() []Params {
	return c.clone().groups
}

// Flags returns a copy of the option flags.
func (c Command) Flags() []string {
	return slices.Clone(c.flags)
}

// Param returns the first value of key across all groups.
func (c Command) Param(key string) (any, bool) {
	for _, g := range c.groups {
		for _, p := range g {
			if p.Key == key {
				return p.Value, true
			}
		}
	}
	return nil, false
}

// String returns the wire line without the trailing newline.
func (c Command) String() string {
	return string(AppendCommand(nil, c))
}

// FormatValue renders a parameter value as unescaped wire text.
// ok is false for nil, meaning only the key is sent.
func FormatValue(v any) (s string, ok bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case Value:
		return x.String(), true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	case int:
		return strconv.Itoa(x), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}
