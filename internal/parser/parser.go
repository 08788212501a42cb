// Package parser reads the CSV source of truth and produces desired
// entity records for the reconciliation engines.
//
// The two parsers deliberately differ in failure policy: the group parser
// soft-skips rows with malformed DNs, while the user parser treats a
// malformed entitlement as fatal for the whole file. This asymmetry is
// preserved from the upstream export handling.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"idsync.io/idsync/internal/domain"
	"idsync.io/idsync/internal/ldapdn"
	apperrors "idsync.io/idsync/internal/pkg/errors"
	"idsync.io/idsync/internal/pkg/logger"
)

// Canonical header names, with a lowercase-with-underscores fallback
// spelling accepted per column.
const (
	colEmail       = "Email"
	colDisplayName = "User Display Name"
	colStatus      = "Employee Status"
	colEntitlement = "Entitlement Display Name"
)

func fallbackSpelling(canonical string) string {
	return strings.ReplaceAll(strings.ToLower(canonical), " ", "_")
}

// header maps column names to field indexes and resolves the two accepted
// spellings per column.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	fields, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Usage(apperrors.CodeCSVEmpty, "CSV file is empty or has no header row")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCSVEmpty, "read CSV header", apperrors.KindUsage)
	}

	h := make(header, len(fields))
	for i, name := range fields {
		h[strings.TrimSpace(name)] = i
	}
	return h, nil
}

// lookup returns the column index for the canonical name, falling back to
// the lowercase-with-underscores spelling.
func (h header) lookup(canonical string) (int, bool) {
	if i, ok := h[canonical]; ok {
		return i, true
	}
	i, ok := h[fallbackSpelling(canonical)]
	return i, ok
}

// require checks that every canonical column is present (under either
// spelling) and reports the missing set, sorted.
func (h header) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := h.lookup(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperrors.Usage(apperrors.CodeCSVMissingColumns,
			"CSV missing required columns: "+strings.Join(missing, ", "))
	}
	return nil
}

// field returns the trimmed value at the canonical column, or "" when the
// row is short.
func (h header) field(row []string, canonical string) string {
	i, ok := h.lookup(canonical)
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Options control parsing behavior.
type Options struct {
	// DNSLabels normalizes extracted group identifiers to DNS-1035 labels
	// for deployments with the stricter remote naming grammar.
	DNSLabels bool
}

// Groups parses the CSV into desired groups, one per distinct identifier,
// sorted by name with members sorted lexicographically.
//
// Rows missing the email or DN value are skipped silently; rows whose DN
// fails to parse are logged and skipped. A malformed header is fatal.
func Groups(path string, opts Options) ([]domain.Group, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ErrCSVNotFoundf(path)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCSVNotFound, "open CSV file", apperrors.KindUsage)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if err := h.require(colEmail, colEntitlement); err != nil {
		return nil, err
	}

	members := make(map[string]map[string]struct{})
	originals := make(map[string]string)

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCSVRowInvalid, "read CSV row", apperrors.KindUsage)
		}

		dn := h.field(row, colEntitlement)
		email := h.field(row, colEmail)
		if dn == "" || email == "" {
			continue
		}

		cn, err := ldapdn.ExtractCN(dn)
		if err != nil {
			logger.Warn("Skipping row due to DN parse error", zap.Error(err))
			continue
		}

		name := cn
		if opts.DNSLabels {
			name, err = ldapdn.NormalizeDNSLabel(cn)
			if err != nil {
				logger.Warn("Skipping row due to group name normalization error",
					zap.String("cn", cn), zap.Error(err))
				continue
			}
		}

		if members[name] == nil {
			members[name] = make(map[string]struct{})
		}
		members[name][email] = struct{}{}
		if opts.DNSLabels && name != cn {
			originals[name] = cn
		}
	}

	planned := make([]domain.Group, 0, len(members))
	for name, users := range members {
		grp := domain.Group{
			Name:         name,
			OriginalName: originals[name],
			Users:        sortedKeys(users),
		}
		planned = append(planned, grp)
	}
	sort.Slice(planned, func(i, j int) bool { return planned[i].Name < planned[j].Name })

	return planned, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Users parses the CSV into desired users with a validation report.
//
// Unlike Groups, a row whose entitlement DN fails to parse aborts the whole
// parse. Blank emails are soft-skipped with a warning; invalid email formats
// and duplicates are reported but do not block the row.
func Users(path string) (*ValidationResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ErrCSVNotFoundf(path)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCSVNotFound, "open CSV file", apperrors.KindUsage)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if err := h.require(colEmail, colDisplayName, colStatus, colEntitlement); err != nil {
		return nil, err
	}

	result := &ValidationResult{
		DuplicateEmails: make(map[string][]int),
		UniqueGroups:    make(map[string]struct{}),
	}
	emailRows := make(map[string][]int)

	rowNum := 1 // header row
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCSVRowInvalid,
				fmt.Sprintf("row %d", rowNum), apperrors.KindUsage)
		}

		email := h.field(row, colEmail)
		if email == "" {
			logger.Warn("Empty email, skipping row", zap.Int("row", rowNum))
			continue
		}

		emailLower := strings.ToLower(email)
		emailRows[emailLower] = append(emailRows[emailLower], rowNum)

		if !ValidEmailFormat(email) {
			result.InvalidEmails = append(result.InvalidEmails, InvalidEmail{Email: email, Row: rowNum})
			logger.Warn("Invalid email format", zap.Int("row", rowNum), zap.String("email", email))
		}

		displayName := normalizeWhitespace(h.field(row, colDisplayName))
		firstName, lastName := SplitDisplayName(displayName)
		if displayName == "" {
			result.UsersWithoutNames++
		}

		active := ParseActiveStatus(h.field(row, colStatus))

		var groups []string
		if entitlements := h.field(row, colEntitlement); entitlements != "" {
			for _, dn := range strings.Split(entitlements, "|") {
				dn = strings.TrimSpace(dn)
				if dn == "" {
					continue
				}
				cn, err := ldapdn.ExtractCN(dn)
				if err != nil {
					// Fatal for the whole parse, unlike the group parser.
					return nil, apperrors.Wrap(err, apperrors.CodeCSVRowInvalid,
						fmt.Sprintf("row %d: failed to parse user", rowNum), apperrors.KindUsage)
				}
				groups = append(groups, cn)
				result.UniqueGroups[cn] = struct{}{}
			}
		}
		if len(groups) == 0 {
			result.UsersWithoutGroups++
		}

		user := domain.User{
			Email:       email,
			Username:    email,
			DisplayName: displayName,
			FirstName:   firstName,
			LastName:    lastName,
			Active:      active,
			Groups:      groups,
		}
		result.Users = append(result.Users, user)
		if active {
			result.ActiveCount++
		} else {
			result.InactiveCount++
		}
	}

	result.TotalCount = len(result.Users)

	// Only identifiers seen at least twice are duplicates.
	for email, rows := range emailRows {
		if len(rows) > 1 {
			result.DuplicateEmails[email] = rows
		}
	}

	logger.Info("Parsed users from CSV",
		zap.Int("count", result.TotalCount), zap.String("path", path))

	return result, nil
}
