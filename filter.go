package teamspeak

import (
	"strings"

	"github.com/pior/teamspeak/query"
)

// Rules maps property names to the value each node must match. Values may
// be a query.Value or any scalar accepted by query.Param.
type Rules map[string]any

// Filter returns the nodes whose cached properties match every rule, in
// their original order. Text properties match by case-insensitive
// substring, other properties by equality. A node lacking a property named
// by a rule is excluded. Filter never issues requests.
func Filter[N Node](nodes []N, rules Rules) []N {
	if len(rules) == 0 {
		return nodes
	}

	want := make(map[string]query.Value, len(rules))
	for k, v := range rules {
		want[k] = ruleValue(v)
	}

	out := make([]N, 0, len(nodes))
	for _, n := range nodes {
		if matches(n.base(), want) {
			out = append(out, n)
		}
	}
	return out
}

func matches(n *node, want map[string]query.Value) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for key, rule := range want {
		v, ok := n.info[key]
		if !ok {
			return false
		}
		if v.IsText() {
			if !strings.Contains(strings.ToLower(v.String()), strings.ToLower(rule.String())) {
				return false
			}
		} else if !v.Equal(rule) {
			return false
		}
	}
	return true
}

func ruleValue(v any) query.Value {
	switch v := v.(type) {
	case query.Value:
		return v
	case string:
		return query.StringValue(v)
	}
	s, _ := query.FormatValue(v)
	return query.ParseValue(s)
}
