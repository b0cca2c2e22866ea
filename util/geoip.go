package util

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

// GeoIPResolver maps client IPs to "City/Country" using a local GeoLite2
// database, with lookups cached in memory. A nil resolver resolves nothing.
type GeoIPResolver struct {
	reader *geoip2.Reader
	cache  *cache.Cache
	hits   int64
	misses int64
}

// OpenGeoIP opens the .mmdb file at path. An empty path yields a nil resolver.
func OpenGeoIP(path string) (*GeoIPResolver, error) {
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &GeoIPResolver{
		reader: r,
		cache:  cache.New(24*time.Hour, time.Hour),
	}, nil
}

func (g *GeoIPResolver) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}

// Location returns "City/Country", only one of them, or "" when unknown.
func (g *GeoIPResolver) Location(ip string) string {
	city, country := g.Lookup(ip)
	switch {
	case city != "" && country != "":
		return city + "/" + country
	case country != "":
		return country
	default:
		return city
	}
}

// Lookup returns the city and country names for ip.
func (g *GeoIPResolver) Lookup(ip string) (string, string) {
	if g == nil {
		return "", ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", ""
	}

	if v, ok := g.cache.Get(ip); ok {
		atomic.AddInt64(&g.hits, 1)
		if arr, ok := v.([2]string); ok {
			return arr[0], arr[1]
		}
	}
	atomic.AddInt64(&g.misses, 1)

	if g.reader == nil {
		return "", ""
	}
	rec, err := g.reader.City(parsed)
	if err != nil {
		return "", ""
	}
	city := rec.City.Names["en"]
	country := rec.Country.Names["en"]
	if country == "" {
		country = rec.Country.IsoCode
	}
	g.cache.Set(ip, [2]string{city, country}, cache.DefaultExpiration)
	return city, country
}

// CacheMetrics returns cache hits, misses and the number of cached entries.
func (g *GeoIPResolver) CacheMetrics() (hits, misses int64, size int) {
	if g == nil {
		return 0, 0, 0
	}
	return atomic.LoadInt64(&g.hits), atomic.LoadInt64(&g.misses), g.cache.ItemCount()
}
