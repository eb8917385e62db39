// Package email classifies email addresses for registration policy.
package email

import "strings"

// FreeMailDomains lists consumer mail providers that do not qualify as a
// business address for company registrations.
var FreeMailDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"yahoo.co.uk",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"aol.com",
	"icloud.com",
	"mail.com",
	"gmx.com",
	"proton.me",
	"protonmail.com",
	"yandex.com",
	"zoho.com",
}

// Domain returns the lowercased domain part of an email address, or an empty
// string when there is none.
func Domain(address string) string {
	if at := strings.LastIndexByte(address, '@'); at >= 0 && at < len(address)-1 {
		return strings.ToLower(address[at+1:])
	}
	return ""
}

// IsFreeMail reports whether the address belongs to a known consumer mail
// provider.
func IsFreeMail(address string) bool {
	domain := Domain(address)
	for _, free := range FreeMailDomains {
		if domain == free {
			return true
		}
	}
	return false
}
