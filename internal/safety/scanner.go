// Package safety classifies chat text for contact-sharing and off-platform
// solicitation. Scan is pure and safe for concurrent use.
package safety

import (
	"regexp"
	"strings"

	"sentinal-safety/internal/domain/message"

	"golang.org/x/text/unicode/norm"
)

var (
	// seven or more digits, optionally led by '+' and split by spaces, dots,
	// dashes or parentheses
	phonePattern = regexp.MustCompile(`\+?\(?\d(?:[\s.\-()]{0,2}\d){6,}`)

	// any local@domain candidate; the domain decides email vs payment handle
	handlePattern = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9._%+\-]*@[A-Za-z0-9][A-Za-z0-9\-]*(?:\.[A-Za-z0-9\-]+)*`)

	linkPattern = regexp.MustCompile(`(?i)(?:\bhttps?://|\bwww\.)[^\s]+`)

	digitRun = regexp.MustCompile(`\d+`)
)

// paymentProviders are UPI-style handle suffixes. Any dot-less domain is
// treated as a payment handle as well; these cover providers that also
// appear with a dotted form.
var paymentProviders = map[string]struct{}{
	"upi":        {},
	"ybl":        {},
	"ibl":        {},
	"axl":        {},
	"paytm":      {},
	"apl":        {},
	"okaxis":     {},
	"oksbi":      {},
	"okhdfcbank": {},
	"okicici":    {},
	"icici":      {},
	"sbi":        {},
	"hdfcbank":   {},
	"axisbank":   {},
	"kotak":      {},
	"pingpay":    {},
	"freecharge": {},
}

// Scan runs every detector over text independently. Text is NFKC folded
// first so full-width digits and symbols match the ASCII patterns.
func Scan(text string) message.SafetyFlags {
	var flags message.SafetyFlags
	if strings.TrimSpace(text) == "" {
		return flags
	}
	text = norm.NFKC.String(text)

	for _, candidate := range phonePattern.FindAllString(text, -1) {
		if !dateLike(digitRun.FindAllString(candidate, -1)) {
			flags.ContainsPhone = true
			break
		}
	}
	flags.ContainsExternalLink = linkPattern.MatchString(text)

	for _, candidate := range handlePattern.FindAllString(text, -1) {
		at := strings.LastIndexByte(candidate, '@')
		domain := strings.ToLower(strings.TrimRight(candidate[at+1:], ".-"))
		switch classifyDomain(domain) {
		case domainEmail:
			flags.ContainsEmail = true
		case domainPayment:
			flags.ContainsPaymentHandle = true
		}
	}
	return flags
}

// dateLike reports whether the digit groups of a phone candidate read as a
// calendar date (year first or last) optionally followed by clock groups,
// e.g. 2024-01-15 10:30 or 12 05 2024.
func dateLike(groups []string) bool {
	if len(groups) < 3 {
		return false
	}
	year, month, day := groups[0], groups[1], groups[2]
	if len(year) != 4 {
		year, day = day, year
	}
	if len(year) != 4 || len(month) > 2 || len(day) > 2 {
		return false
	}
	for _, g := range groups[3:] {
		if len(g) > 2 {
			return false
		}
	}
	return true
}

type domainKind int

const (
	domainUnknown domainKind = iota
	domainEmail
	domainPayment
)

func classifyDomain(domain string) domainKind {
	if domain == "" {
		return domainUnknown
	}
	if _, ok := paymentProviders[domain]; ok {
		return domainPayment
	}
	dot := strings.LastIndexByte(domain, '.')
	if dot < 0 {
		return domainPayment
	}
	tld := domain[dot+1:]
	if len(tld) < 2 || !isAlpha(tld) {
		return domainUnknown
	}
	return domainEmail
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
