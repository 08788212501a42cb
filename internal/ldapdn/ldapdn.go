// Package ldapdn extracts and normalizes group identifiers from LDAP
// distinguished names.
//
// The remote service accepts group names matching ^[A-Za-z0-9_-]{1,128}$.
// Stricter deployments require DNS-1035 labels instead; NormalizeDNSLabel
// converts an extracted identifier into that form.
package ldapdn

import (
	"fmt"
	"regexp"
	"strings"

	ldap "github.com/go-ldap/ldap/v3"

	apperrors "idsync.io/idsync/internal/pkg/errors"
)

// Compiled-once identifier grammars.
var (
	groupNameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	dnsLabelRE  = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)
)

// maxDNSLabelLen is the DNS-1035 label length limit.
const maxDNSLabelLen = 63

// ValidGroupName reports whether name satisfies the remote naming grammar.
func ValidGroupName(name string) bool {
	return groupNameRE.MatchString(name)
}

// ExtractCN parses a distinguished name and returns the value of its first
// CN component (case-insensitive attribute match).
//
// Fails with a DN_PARSE_FAILED error if the string is not a parseable DN or
// has no CN component, and with GROUP_NAME_INVALID if the extracted value
// violates the group name grammar.
func ExtractCN(dn string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDNParseFailed,
			fmt.Sprintf("malformed DN: %s", dn), apperrors.KindUsage)
	}

	var cn string
	for _, rdn := range parsed.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, "CN") {
				cn = attr.Value
				break
			}
		}
		if cn != "" {
			break
		}
	}

	if cn == "" {
		return "", apperrors.Usage(apperrors.CodeDNParseFailed, "CN not found in DN: "+dn)
	}

	if !ValidGroupName(cn) {
		return "", apperrors.Usage(apperrors.CodeGroupNameInvalid,
			"invalid group name extracted from CN; must match ^[A-Za-z0-9_-]{1,128}$")
	}

	return cn, nil
}

// NormalizeDNSLabel converts an identifier to a DNS-1035 label: lowercase,
// underscores become hyphens, must start with a letter, trailing
// non-alphanumerics stripped, truncated to 63 characters.
func NormalizeDNSLabel(name string) (string, error) {
	label := strings.ToLower(name)
	label = strings.ReplaceAll(label, "_", "-")

	if label == "" || label[0] < 'a' || label[0] > 'z' {
		return "", apperrors.Usage(apperrors.CodeGroupNameInvalid,
			fmt.Sprintf("group name %q must start with a letter", name))
	}

	label = strings.TrimRightFunc(label, isNonAlphanumeric)
	if label == "" {
		return "", apperrors.Usage(apperrors.CodeGroupNameInvalid,
			fmt.Sprintf("group name %q has no usable characters", name))
	}

	if len(label) > maxDNSLabelLen {
		label = label[:maxDNSLabelLen]
		label = strings.TrimRightFunc(label, isNonAlphanumeric)
	}

	if !dnsLabelRE.MatchString(label) {
		return "", apperrors.Usage(apperrors.CodeGroupNameInvalid,
			fmt.Sprintf("group name %q does not normalize to a DNS label", name))
	}

	return label, nil
}

func isNonAlphanumeric(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}
