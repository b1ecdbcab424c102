// Package locate resolves a client address to a starting point for a new
// drawing session. A MaxMind database (City or any mmdb carrying a
// location record) supplies coordinates; an optional ip2region xdb supplies
// place names when the mmdb has none.
package locate

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"
	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"

	"field-geo/internal/geo"
	"field-geo/internal/logger"
)

// Origin is where a client most likely sits.
type Origin struct {
	Point    geo.GeoPoint `json:"point"`
	HasPoint bool         `json:"hasPoint"`
	Country  string       `json:"country,omitempty"`
	Province string       `json:"province,omitempty"`
	City     string       `json:"city,omitempty"`
	Source   string       `json:"source"`
}

type Locator struct {
	city   *geoip2.Reader
	raw    *maxminddb.Reader
	dbType string
	v4     *xdb.Searcher
	v6     *xdb.Searcher
}

type mmdbLocation struct {
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Open loads the databases that have a non-empty path. City databases are
// read through geoip2; anything else falls back to a raw mmdb lookup of the
// location record.
func Open(mmdbPath, xdbV4Path, xdbV6Path string) (*Locator, error) {
	l := &Locator{}
	if mmdbPath != "" {
		b, err := os.ReadFile(mmdbPath)
		if err != nil {
			return nil, fmt.Errorf("read mmdb: %w", err)
		}
		raw, err := maxminddb.FromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("open mmdb: %w", err)
		}
		l.dbType = raw.Metadata.DatabaseType
		if strings.Contains(l.dbType, "City") {
			_ = raw.Close()
			city, err := geoip2.FromBytes(b)
			if err != nil {
				return nil, fmt.Errorf("open city db: %w", err)
			}
			l.city = city
		} else {
			l.raw = raw
		}
		logger.L().Info("geoip_db_loaded", "path", mmdbPath, "type", l.dbType)
	}
	var err error
	if xdbV4Path != "" {
		if l.v4, err = xdb.NewWithFileOnly(xdb.IPv4, xdbV4Path); err != nil {
			l.Close()
			return nil, fmt.Errorf("open ip2region v4: %w", err)
		}
	}
	if xdbV6Path != "" {
		if l.v6, err = xdb.NewWithFileOnly(xdb.IPv6, xdbV6Path); err != nil {
			l.Close()
			return nil, fmt.Errorf("open ip2region v6: %w", err)
		}
	}
	return l, nil
}

// FromEnv opens GEOIP_DB_PATH, IP2REGION_V4_PATH and IP2REGION_V6_PATH.
// With none set it returns nil, which Locate treats as "unknown".
func FromEnv() (*Locator, error) {
	mm, v4, v6 := os.Getenv("GEOIP_DB_PATH"), os.Getenv("IP2REGION_V4_PATH"), os.Getenv("IP2REGION_V6_PATH")
	if mm == "" && v4 == "" && v6 == "" {
		return nil, nil
	}
	return Open(mm, v4, v6)
}

var errNoRecord = errors.New("no record")

// Locate never fails; ok is false when nothing is known about ip.
func (l *Locator) Locate(ip string) (Origin, bool) {
	if l == nil {
		return Origin{}, false
	}
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return Origin{}, false
	}
	var out Origin
	if err := l.lookupPoint(addr, &out); err != nil && !errors.Is(err, errNoRecord) {
		logger.L().Debug("geoip_lookup_fail", "ip", ip, "err", err)
	}
	if out.Country == "" {
		l.lookupNames(addr, &out)
	}
	return out, out.HasPoint || out.Country != ""
}

func (l *Locator) lookupPoint(ip net.IP, out *Origin) error {
	switch {
	case l.city != nil:
		rec, err := l.city.City(ip)
		if err != nil {
			return err
		}
		if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
			return errNoRecord
		}
		out.Point = geo.GeoPoint{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude}
		out.HasPoint = true
		out.Country = rec.Country.Names["en"]
		if len(rec.Subdivisions) > 0 {
			out.Province = rec.Subdivisions[0].Names["en"]
		}
		out.City = rec.City.Names["en"]
		out.Source = "geoip2"
	case l.raw != nil:
		var rec mmdbLocation
		_, ok, err := l.raw.LookupNetwork(ip, &rec)
		if err != nil {
			return err
		}
		if !ok || (rec.Location.Latitude == 0 && rec.Location.Longitude == 0) {
			return errNoRecord
		}
		out.Point = geo.GeoPoint{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude}
		out.HasPoint = true
		out.Source = "mmdb"
	}
	return nil
}

func (l *Locator) lookupNames(ip net.IP, out *Origin) {
	s := l.v4
	if ip.To4() == nil {
		s = l.v6
	}
	if s == nil {
		return
	}
	region, err := s.SearchByStr(ip.String())
	if err != nil || region == "" {
		return
	}
	parts := parseRegion(region)
	out.Country, out.Province, out.City = parts[0], parts[2], parts[3]
	if out.Source == "" {
		out.Source = "ip2region"
	}
}

// parseRegion splits an ip2region "country|region|province|city|isp" row,
// blanking the "0" and "unknown" placeholders.
func parseRegion(s string) [5]string {
	var out [5]string
	for i, p := range strings.SplitN(s, "|", 5) {
		if p == "0" || strings.EqualFold(p, "unknown") {
			p = ""
		}
		out[i] = p
	}
	return out
}

// Close releases every open database. Safe on nil.
func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	if l.city != nil {
		errs = append(errs, l.city.Close())
	}
	if l.raw != nil {
		errs = append(errs, l.raw.Close())
	}
	if l.v4 != nil {
		l.v4.Close()
	}
	if l.v6 != nil {
		l.v6.Close()
	}
	return errors.Join(errs...)
}
