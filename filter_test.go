package teamspeak

import (
	"testing"

	"github.com/pior/teamspeak/query"
	"github.com/stretchr/testify/assert"
)

func offlineChannels(records ...query.Record) []*Channel {
	s := newServer(NewHost(nil), 1, nil)
	channels := make([]*Channel, len(records))
	for i, rec := range records {
		channels[i] = newChannel(s, s, rec.Int("cid", 0), rec)
	}
	return channels
}

func names(channels []*Channel) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = ch.String()
	}
	return out
}

func TestFilter_Substring(t *testing.T) {
	channels := offlineChannels(
		query.Record{"cid": query.IntValue(1), "channel_name": query.StringValue("foobar")},
		query.Record{"cid": query.IntValue(2), "channel_name": query.StringValue("bar")},
		query.Record{"cid": query.IntValue(3), "channel_name": query.StringValue("FOO room")},
	)

	got := Filter(channels, Rules{"channel_name": "foo"})
	assert.Equal(t, []string{"foobar", "FOO room"}, names(got))

	got = Filter(channels, Rules{"channel_name": "Bar"})
	assert.Equal(t, []string{"foobar", "bar"}, names(got))
}

func TestFilter_Equality(t *testing.T) {
	channels := offlineChannels(
		query.Record{"cid": query.IntValue(1), "channel_name": query.StringValue("a"), "total_clients": query.IntValue(10)},
		query.Record{"cid": query.IntValue(2), "channel_name": query.StringValue("b"), "total_clients": query.IntValue(1)},
		query.Record{"cid": query.IntValue(3), "channel_name": query.StringValue("c"), "total_clients": query.ParseValue("1")},
	)

	// 1 must not match 10 as a substring
	got := Filter(channels, Rules{"total_clients": 1})
	assert.Equal(t, []string{"b", "c"}, names(got))

	got = Filter(channels, Rules{"total_clients": query.IntValue(10)})
	assert.Equal(t, []string{"a"}, names(got))
}

func TestFilter_AllRulesMustMatch(t *testing.T) {
	channels := offlineChannels(
		query.Record{"cid": query.IntValue(1), "channel_name": query.StringValue("Games"), "channel_flag_permanent": query.IntValue(1)},
		query.Record{"cid": query.IntValue(2), "channel_name": query.StringValue("Games 2"), "channel_flag_permanent": query.IntValue(0)},
	)

	got := Filter(channels, Rules{"channel_name": "games", "channel_flag_permanent": true})
	assert.Equal(t, []string{"Games"}, names(got))
}

func TestFilter_MissingPropertyExcludes(t *testing.T) {
	channels := offlineChannels(
		query.Record{"cid": query.IntValue(1), "channel_name": query.StringValue("Lobby"), "channel_topic": query.StringValue("news")},
		query.Record{"cid": query.IntValue(2), "channel_name": query.StringValue("Other")},
	)

	got := Filter(channels, Rules{"channel_topic": ""})
	assert.Equal(t, []string{"Lobby"}, names(got))
}

func TestFilter_NoRules(t *testing.T) {
	channels := offlineChannels(
		query.Record{"cid": query.IntValue(1)},
		query.Record{"cid": query.IntValue(2)},
	)

	assert.Equal(t, channels, Filter(channels, nil))
	assert.Empty(t, Filter([]*Channel{}, Rules{"cid": 1}))
}

func TestFilter_OnNodeInterface(t *testing.T) {
	channels := offlineChannels(
		query.Record{"cid": query.IntValue(1), "channel_name": query.StringValue("x")},
		query.Record{"cid": query.IntValue(2), "channel_name": query.StringValue("y")},
	)
	nodes := []Node{channels[0], channels[1]}

	got := Filter(nodes, Rules{"cid": 2})
	assert.Equal(t, []Node{channels[1]}, got)
}
