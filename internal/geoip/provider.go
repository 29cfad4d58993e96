// internal/geoip/provider.go
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	harvesterErrors "github.com/proxymesh/harvester/internal/errors"
)

// HTTPProvider queries a JSON geo-IP API over HTTP. The URL template and
// field mapping differ enough between public providers (ip-api.com,
// ipapi.co, ipinfo.io) that each gets its own small response shape rather
// than one generic schema.
type HTTPProvider struct {
	name     string
	client   *http.Client
	endpoint func(ip string) string
	parse    func([]byte) (*Location, error)
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Lookup(ctx context.Context, ip string) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(ip), nil)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "geoip.HTTPProvider.Lookup", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "geoip.HTTPProvider.Lookup", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, harvesterErrors.New(harvesterErrors.KindTransientNetwork, "geoip.HTTPProvider.Lookup",
			fmt.Sprintf("%s returned status %d", p.name, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindTransientNetwork, "geoip.HTTPProvider.Lookup", err)
	}
	loc, err := p.parse(body)
	if err != nil {
		return nil, harvesterErrors.Wrap(harvesterErrors.KindParse, "geoip.HTTPProvider.Lookup", err)
	}
	loc.IP = ip
	return loc, nil
}

type ipAPIResponse struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	Status      string  `json:"status"`
}

// NewIPAPIProvider builds a Provider against the ip-api.com free JSON
// endpoint, the provider the original Python harvester used by default.
func NewIPAPIProvider(timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:   "ip-api.com",
		client: &http.Client{Timeout: timeout},
		endpoint: func(ip string) string {
			return fmt.Sprintf("http://ip-api.com/json/%s?fields=status,country,countryCode,regionName,city,lat,lon,isp", ip)
		},
		parse: func(body []byte) (*Location, error) {
			var r ipAPIResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return nil, err
			}
			if r.Status != "success" {
				return nil, fmt.Errorf("ip-api.com lookup failed: status=%s", r.Status)
			}
			return &Location{
				Country:     r.Country,
				CountryCode: r.CountryCode,
				Region:      r.RegionName,
				City:        r.City,
				Lat:         r.Lat,
				Lon:         r.Lon,
				ISP:         r.ISP,
			}, nil
		},
	}
}

type ipapiCoResponse struct {
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Org         string  `json:"org"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// NewIPAPICoProvider builds a Provider against ipapi.co, used as the
// fallback when ip-api.com is rate-limited — spec.md §4.4.3's "pluggable
// ordered list of geo-IP providers".
func NewIPAPICoProvider(timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:   "ipapi.co",
		client: &http.Client{Timeout: timeout},
		endpoint: func(ip string) string {
			return fmt.Sprintf("https://ipapi.co/%s/json/", ip)
		},
		parse: func(body []byte) (*Location, error) {
			var r ipapiCoResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return nil, err
			}
			if r.Error {
				return nil, fmt.Errorf("ipapi.co lookup failed: %s", r.Reason)
			}
			return &Location{
				Country:     r.CountryName,
				CountryCode: r.CountryCode,
				Region:      r.Region,
				City:        r.City,
				Lat:         r.Latitude,
				Lon:         r.Longitude,
				ISP:         r.Org,
			}, nil
		},
	}
}
