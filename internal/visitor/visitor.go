// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package visitor describes the client behind a request: address,
// country, browser, operating system and device class.
package visitor

import (
	"net/http"

	"github.com/mileusna/useragent"

	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/util"
)

// Device classes.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

const unknown = "Unknown"

// CountryResolver maps an IP address to an ISO country code.
type CountryResolver interface {
	Country(ip string) string
}

// Describer builds model.ClientInfo values from requests.
type Describer struct {
	geo CountryResolver
}

// NewDescriber creates a Describer. geo may be nil.
func NewDescriber(geo CountryResolver) *Describer {
	return &Describer{geo: geo}
}

// Describe inspects the request's address and User-Agent header.
func (d *Describer) Describe(r *http.Request) model.ClientInfo {
	info := ParseUserAgent(r.UserAgent())
	info.IP = util.ClientIP(r)
	if d.geo != nil {
		info.Country = d.geo.Country(info.IP)
	}
	return info
}

// ParseUserAgent extracts browser, OS and device class from a user agent
// string.
func ParseUserAgent(ua string) model.ClientInfo {
	parsed := useragent.Parse(ua)

	info := model.ClientInfo{
		Browser: parsed.Name,
		OS:      parsed.OS,
	}
	if info.Browser == "" {
		info.Browser = unknown
	}
	if info.OS == "" {
		info.OS = unknown
	}

	switch {
	case parsed.Mobile:
		info.Device = DeviceMobile
	case parsed.Tablet:
		info.Device = DeviceTablet
	case parsed.Bot:
		info.Device = DeviceBot
	default:
		info.Device = DeviceDesktop
	}
	return info
}
