package gnutella

import "strconv"

// parseAddr validates one "ip:port" line from stdin. It is a manual
// character scan rather than net.ParseIP/net.SplitHostPort so that a
// malformed line can be distinguished, at this layer, from a
// well-formed address that simply fails to connect later (the two
// produce different report reasons, "Bad Address" versus everything
// else).
func parseAddr(addr string) (ip4 [4]byte, port uint16, ok bool) {
	colon := -1
	for i := 0; i < len(addr); i++ {
		if addr[i] == ':' {
			colon = i
			break
		}
	}
	if colon <= 0 || colon > 15 {
		return ip4, 0, false
	}

	octets := splitOctets(addr[:colon])
	if octets == nil {
		return ip4, 0, false
	}
	for i, o := range octets {
		v, ok := parseOctet(o)
		if !ok {
			return ip4, 0, false
		}
		ip4[i] = v
	}

	portPart := addr[colon+1:]
	if portPart == "" {
		return ip4, 0, false
	}
	for i := 0; i < len(portPart); i++ {
		if portPart[i] < '0' || portPart[i] > '9' {
			return ip4, 0, false
		}
	}
	p, err := strconv.ParseUint(portPart, 10, 32)
	if err != nil || p < 1 || p > 65535 {
		return ip4, 0, false
	}
	return ip4, uint16(p), true
}

// splitOctets splits "a.b.c.d" into its four fields without allocating
// via strings.Split's general-purpose path, returning nil unless there
// are exactly four non-empty fields.
func splitOctets(s string) []string {
	fields := make([]string, 0, 4)
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if i == start {
				return nil
			}
			fields = append(fields, s[start:i])
			start = i + 1
		}
	}
	if len(fields) != 4 {
		return nil
	}
	return fields
}

func parseOctet(s string) (byte, bool) {
	if len(s) == 0 || len(s) > 3 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v > 255 {
		return 0, false
	}
	return byte(v), true
}
