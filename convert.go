package teamspeak

import (
	"strconv"
	"strings"

	"github.com/pior/teamspeak/query"
)

// Conversion is the human readable rendering a property calls for.
type Conversion uint8

const (
	ConvertNone Conversion = iota
	ConvertBytes
	ConvertBandwidth
	ConvertPackets
	ConvertPacketLoss
	ConvertUptime
	ConvertVersion
	ConvertIcon
)

func (c Conversion) String() string {
	switch c {
	case ConvertBytes:
		return "bytes"
	case ConvertBandwidth:
		return "bandwidth"
	case ConvertPackets:
		return "packets"
	case ConvertPacketLoss:
		return "packetloss"
	case ConvertUptime:
		return "uptime"
	case ConvertVersion:
		return "version"
	case ConvertIcon:
		return "icon"
	default:
		return "none"
	}
}

// ConversionFor classifies a property by name. The first matching pattern
// wins.
func ConversionFor(name string) Conversion {
	switch {
	case strings.Contains(name, "_bytes_"):
		return ConvertBytes
	case strings.Contains(name, "_bandwidth_"):
		return ConvertBandwidth
	case strings.Contains(name, "_packets_"):
		return ConvertPackets
	case strings.Contains(name, "_packetloss_"):
		return ConvertPacketLoss
	case strings.HasSuffix(name, "_uptime"):
		return ConvertUptime
	case strings.HasSuffix(name, "_version"):
		return ConvertVersion
	case strings.HasSuffix(name, "_icon_id"):
		return ConvertIcon
	default:
		return ConvertNone
	}
}

// Converter renders a classified property value for display.
type Converter interface {
	Convert(c Conversion, v query.Value) string
}

// ConvertInfo renders every property of info. Properties without a
// conversion keep their raw text.
func ConvertInfo(info query.Record, conv Converter) map[string]string {
	out := make(map[string]string, len(info))
	for k, v := range info {
		if c := ConversionFor(k); c != ConvertNone {
			out[k] = conv.Convert(c, v)
			continue
		}
		out[k] = v.String()
	}
	return out
}

// IconID returns an icon id as the unsigned 32 bit number the server
// stores. Negative ids on the wire are two's complement wrapped.
func IconID(v query.Value) uint32 {
	return uint32(v.IntOr(0))
}

// IconPath returns the internal path of an icon, e.g. "/icon_3000001".
func IconPath(v query.Value) string {
	return "/icon_" + strconv.FormatUint(uint64(IconID(v)), 10)
}
