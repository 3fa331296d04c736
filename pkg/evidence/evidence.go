// Package evidence checks the format of evidence content identifiers and
// builds their public gateway links. It never resolves a reference.
package evidence

import (
	"regexp"
	"strings"
)

// DefaultGateway is the public content gateway used when none is configured.
const DefaultGateway = "https://gateway.pinata.cloud/ipfs/"

// Placeholder is stored by proposers whose evidence upload has not landed.
const Placeholder = "QmPendiente"

var (
	cidV0 = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1 = regexp.MustCompile(`^b[a-z2-7]{58}$`)
)

// IsValidContentID reports whether ref is a CIDv0 ("Qm" + 44 base58 chars)
// or a base32 CIDv1 ("b" + 58 chars).
func IsValidContentID(ref string) bool {
	return cidV0.MatchString(ref) || cidV1.MatchString(ref)
}

// URL returns the gateway link for ref, or "" for an empty ref or the
// upload placeholder. The format of ref is not checked; gate on
// IsValidContentID before offering the link.
func URL(gateway, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == Placeholder {
		return ""
	}
	if gateway == "" {
		gateway = DefaultGateway
	}
	return strings.TrimRight(gateway, "/") + "/" + ref
}
