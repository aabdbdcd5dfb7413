// Package allowlist decides whether a caller address may use the credential
// verification endpoint. Entries are single addresses or CIDR prefixes, given
// as a comma separated list.
package allowlist

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidEntry is returned by Parse for an entry that is neither an IP
// address nor a CIDR prefix.
var ErrInvalidEntry = errors.New("invalid allow-list entry")

// List is an immutable set of prefixes. The zero value allows nobody.
type List struct {
	prefixes []netip.Prefix
}

// Parse builds a List from a comma separated string such as
// "127.0.0.1, 10.0.0.0/8, ::1". Blank entries are ignored.
func Parse(raw string) (List, error) {
	return ParseEntries(strings.Split(raw, ","))
}

// ParseEntries builds a List from individual entries.
func ParseEntries(entries []string) (List, error) {
	var l List
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		p, err := parseEntry(entry)
		if err != nil {
			return List{}, fmt.Errorf("%w: %q", ErrInvalidEntry, entry)
		}
		l.prefixes = append(l.prefixes, p)
	}
	return l, nil
}

func parseEntry(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		p, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		if p.Addr().Is4In6() && p.Bits() >= 96 {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap().WithZone("")
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Allows reports whether ip (a textual address, optionally IPv4-mapped IPv6
// or with a zone) is covered by the list. Unparseable input is never
// allowed.
func (l List) Allows(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	return l.AllowsAddr(addr)
}

// AllowsAddr is Allows for an already parsed address.
func (l List) AllowsAddr(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (l List) Len() int { return len(l.prefixes) }

// String renders the list in canonical form.
func (l List) String() string {
	parts := make([]string, len(l.prefixes))
	for i, p := range l.prefixes {
		if p.IsSingleIP() {
			parts[i] = p.Addr().String()
			continue
		}
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
