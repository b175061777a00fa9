package httpapi

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/mssola/useragent"

	"github.com/MrEthical07/authcore"
)

const (
	headerAppVersion  = "X-App-Version"
	headerDeviceModel = "X-Device-Model"
	maxDeviceField    = 64
)

// osNames folds the parser's platform names into the labels we store.
var osNames = map[string]string{
	"Mac OS X":  "macOS",
	"iPhone OS": "iOS",
	"CPU OS":    "iOS",
}

// deviceFromRequest builds the descriptor stored with a new session. It is
// informational only, so unknown agents simply leave fields empty.
func deviceFromRequest(r *http.Request) *authcore.Device {
	d := &authcore.Device{
		AppVersion: clip(r.Header.Get(headerAppVersion)),
		Model:      clip(r.Header.Get(headerDeviceModel)),
	}
	if raw := r.UserAgent(); raw != "" {
		ua := useragent.New(raw)
		d.OS = clip(osName(ua.OSInfo().Name))
		name, _ := ua.Browser()
		d.Browser = clip(name)
		d.IsMobile = ua.Mobile()
	}
	if *d == (authcore.Device{}) {
		return nil
	}
	return d
}

func osName(name string) string {
	if mapped, ok := osNames[name]; ok {
		return mapped
	}
	return name
}

// clip makes header text safe for TEXT columns: invalid UTF-8 is dropped
// and the result is cut to maxDeviceField bytes on a rune boundary.
func clip(s string) string {
	s = strings.TrimSpace(strings.ToValidUTF8(s, ""))
	if len(s) <= maxDeviceField {
		return s
	}
	cut := maxDeviceField
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
