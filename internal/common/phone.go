package common

import (
	"regexp"
	"strings"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone returns raw in E.164 form. Local numbers ("024...") take the country's dial code.
func NormalizePhone(raw string, country models.Country) (string, error) {
	p := phoneNoise.Replace(strings.TrimSpace(raw))
	switch {
	case p == "":
		return "", apperr.New(apperr.CodeValidation, "phone is required")
	case strings.HasPrefix(p, "+"):
	case strings.HasPrefix(p, "00"):
		p = "+" + p[2:]
	case strings.HasPrefix(p, "0") && country.DialCode != "":
		p = country.DialCode + p[1:]
	case country.DialCode != "" && strings.HasPrefix(p, country.DialCode[1:]):
		p = "+" + p
	}
	if !e164.MatchString(p) {
		return "", apperr.New(apperr.CodeValidation, "phone must be in international format, e.g. +233241234567")
	}
	return p, nil
}

// IsE164 reports whether p is already normalized.
func IsE164(p string) bool {
	return e164.MatchString(p)
}
