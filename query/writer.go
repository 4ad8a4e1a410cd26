package query

// AppendCommand appends the wire form of cmd, without newline, to dst.
//
// Format: <verb> <k>=<v> <k>=<v>|<k>=<v> <flag> <flag>
//
// Groups are joined by ListSeparator, parameter order inside a group is kept
// and values are escaped. Empty groups are skipped.
func AppendCommand(dst []byte, cmd Command) []byte {
	dst = append(dst, cmd.verb...)

	first := true
	for _, g := range cmd.groups {
		if len(g) == 0 {
			continue
		}
		if first {
			dst = append(dst, CellSeparator...)
			first = false
		} else {
			dst = append(dst, ListSeparator...)
		}
		for i, p := range g {
			if i > 0 {
				dst = append(dst, CellSeparator...)
			}
			dst = append(dst, p.Key...)
			if s, ok := FormatValue(p.Value); ok {
				dst = append(dst, PairSeparator...)
				dst = append(dst, Escape(s)...)
			}
		}
	}

	for _, f := range cmd.flags {
		dst = append(dst, CellSeparator...)
		dst = append(dst, f...)
	}
	return dst
}

// Encode returns the wire line for cmd without newline.
func Encode(cmd Command) string {
	return string(AppendCommand(nil, cmd))
}
