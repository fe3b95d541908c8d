package geo

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"net"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
	"github.com/oschwald/geoip2-golang"
)

// DatabaseType is written into compiled databases so geoip2 readers accept
// Country lookups.
const DatabaseType = "GeoLite2-Country"

// WriteMMDB compiles ranges into a MaxMind database written to w. Ranges are
// inserted by ascending lower bound so a later range with the same lower
// bound overrides an earlier one, matching Index. Bounds must lie in the
// IPv4 space.
func WriteMMDB(w io.Writer, ranges []Range) (int64, error) {
	tree, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType:            DatabaseType,
		Description:             map[string]string{"en": "fraudprep ip ranges"},
		RecordSize:              24,
		IPVersion:               4,
		IncludeReservedNetworks: true,
	})
	if err != nil {
		return 0, fmt.Errorf("mmdb: new tree: %w", err)
	}
	for _, r := range NewIndex(ranges).Ranges() {
		if r.Lower < 0 || r.Upper > math.MaxUint32 || r.Lower > r.Upper {
			return 0, fmt.Errorf("mmdb: range [%d, %d] is not a valid IPv4 range", r.Lower, r.Upper)
		}
		names := mmdbtype.Map{}
		if !r.NoCountry {
			names["en"] = mmdbtype.String(r.Country)
		}
		rec := mmdbtype.Map{
			"country": mmdbtype.Map{"names": names},
		}
		for _, n := range rangeToCIDRs(uint32(r.Lower), uint32(r.Upper)) {
			if err := tree.Insert(n, rec); err != nil {
				return 0, fmt.Errorf("mmdb: insert %s: %w", n, err)
			}
		}
	}
	n, err := tree.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("mmdb: write: %w", err)
	}
	return n, nil
}

// rangeToCIDRs splits the inclusive range [lo, hi] into the minimal list of
// aligned prefixes.
func rangeToCIDRs(lo, hi uint32) []*net.IPNet {
	var out []*net.IPNet
	cur, end := uint64(lo), uint64(hi)
	for cur <= end {
		// Largest block aligned at cur.
		size := 32
		if cur != 0 {
			size = bits.TrailingZeros32(uint32(cur))
		}
		// Shrink until it fits below end.
		for size > 0 && cur+(uint64(1)<<size)-1 > end {
			size--
		}
		out = append(out, &net.IPNet{
			IP:   uint32ToIP(uint32(cur)),
			Mask: net.CIDRMask(32-size, 32),
		})
		cur += uint64(1) << size
	}
	return out
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).To4()
}

// MMDBLocator resolves addresses against a compiled database. Returned
// ranges carry only the country; the database does not keep the original
// bounds.
type MMDBLocator struct {
	db *geoip2.Reader
}

// OpenMMDB opens a database written by WriteMMDB (or any GeoIP2/GeoLite2
// Country or City database).
func OpenMMDB(path string) (*MMDBLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmdb: open %s: %w", path, err)
	}
	return &MMDBLocator{db: db}, nil
}

// Locate implements Locator. Addresses outside IPv4 and lookup errors are
// reported as unmatched.
func (m *MMDBLocator) Locate(ip int64) (Range, bool) {
	if ip < 0 || ip > math.MaxUint32 {
		return Range{}, false
	}
	rec, err := m.db.Country(uint32ToIP(uint32(ip)))
	if err != nil {
		return Range{}, false
	}
	// Addresses outside every network decode to a nil names map. Ranges
	// written without a country decode to an empty one.
	if rec.Country.Names == nil {
		return Range{}, false
	}
	name, ok := rec.Country.Names["en"]
	return Range{Country: name, NoCountry: !ok}, true
}

// Close releases the underlying reader.
func (m *MMDBLocator) Close() error { return m.db.Close() }
