package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Aliases lists the wire keys accepted for one logical field.
// The first key is used when encoding.
type Aliases []string

// Primary returns the key used when encoding, or "".
func (a Aliases) Primary() string {
	if len(a) == 0 {
		return ""
	}
	return a[0]
}

// NormaliseWireKey folds a column name for alias matching.
// "chataId", "CHATA_ID" and "chata id" all normalise to "chataid".
func NormaliseWireKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// WireRow is one decoded row from a remote collection.
type WireRow map[string]any

// index folds the row's keys for alias lookup.
func (r WireRow) index() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[NormaliseWireKey(k)] = v
	}
	return out
}

func (a Aliases) lookup(idx map[string]any) (any, bool) {
	for _, k := range a {
		if v, ok := idx[NormaliseWireKey(k)]; ok {
			return v, true
		}
	}
	return nil, false
}

// CaseSchema maps case list columns.
type CaseSchema struct {
	ID      Aliases
	Name    Aliases
	ReportA Aliases
	ReportB Aliases

	// HeaderLabels are id values that mark an echoed header row.
	HeaderLabels []string
}

// SubmissionSchema maps submission log columns.
type SubmissionSchema struct {
	RowID     Aliases
	CaseID    Aliases
	Name      Aliases
	Timestamp Aliases
	ASC       Aliases
	ADHD      Aliases
	Fields    map[FieldID]Aliases
	Referrals Aliases
}

// WireSchema maps logical record fields to remote column names.
type WireSchema struct {
	Case       CaseSchema
	Submission SubmissionSchema
}

// DefaultWireSchema returns the column names of the CHATA sheets.
func DefaultWireSchema() WireSchema {
	return WireSchema{
		Case: CaseSchema{
			ID:           Aliases{"chataId", "uniqueId"},
			Name:         Aliases{"childName", "name"},
			ReportA:      Aliases{"r1Generated (pdf)", "r1Generated", "r1Url"},
			ReportB:      Aliases{"r2Generated (pdf)", "r2Generated", "r2Url"},
			HeaderLabels: []string{"CHATA_ID"},
		},
		Submission: SubmissionSchema{
			RowID:     Aliases{"id"},
			CaseID:    Aliases{"chataId"},
			Name:      Aliases{"name", "childName"},
			Timestamp: Aliases{"timestamp"},
			ASC:       Aliases{"ascStatus", "asc"},
			ADHD:      Aliases{"adhdStatus", "adhd"},
			Fields: map[FieldID]Aliases{
				FieldClinicalObservations:   {"keyClinicalObservations", "observations", "clinical"},
				FieldStrengthsAbilities:     {"strengthsAndAbilities", "strengths"},
				FieldPrioritySupport:        {"prioritySupportAreas", "supportareas", "priority"},
				FieldSupportRecommendations: {"supportRecommendations", "recommendations", "support"},
			},
			Referrals: Aliases{"professionalReferrals", "referrals"},
		},
	}
}

// RowIDKey is the config key holding the aliases of the submission row id.
const RowIDKey = "schema.submission.row_id"

// Validate checks that every field has a wire key and that no wire key is
// claimed by two fields of the same record type.
func (s WireSchema) Validate() error {
	caseFields := map[string]Aliases{
		"case.id":       s.Case.ID,
		"case.name":     s.Case.Name,
		"case.report_a": s.Case.ReportA,
		"case.report_b": s.Case.ReportB,
	}
	if err := validateAliases(caseFields); err != nil {
		return err
	}

	subFields := map[string]Aliases{
		"submission.row_id":    s.Submission.RowID,
		"submission.case_id":   s.Submission.CaseID,
		"submission.name":      s.Submission.Name,
		"submission.timestamp": s.Submission.Timestamp,
		"submission.asc":       s.Submission.ASC,
		"submission.adhd":      s.Submission.ADHD,
		"submission.referrals": s.Submission.Referrals,
	}
	for _, f := range AllFields() {
		subFields["submission."+f.String()] = s.Submission.Fields[f]
	}
	return validateAliases(subFields)
}

func validateAliases(fields map[string]Aliases) error {
	owner := make(map[string]string)
	for name, aliases := range fields {
		if len(aliases) == 0 {
			return fmt.Errorf("%w: wire schema has no key for %s", ErrInvalidInput, name)
		}
		for _, a := range aliases {
			k := NormaliseWireKey(a)
			if k == "" {
				return fmt.Errorf("%w: wire schema has an empty key for %s", ErrInvalidInput, name)
			}
			if prev, ok := owner[k]; ok && prev != name {
				return fmt.Errorf("%w: wire key %q is mapped to both %s and %s", ErrInvalidInput, a, prev, name)
			}
			owner[k] = name
		}
	}
	return nil
}

// IsHeaderRow reports whether an id value is an echoed header label.
func (s CaseSchema) IsHeaderRow(id string) bool {
	n := NormaliseWireKey(id)
	for _, h := range s.HeaderLabels {
		if NormaliseWireKey(h) == n {
			return true
		}
	}
	return false
}

// DecodeCase maps a row to a case record. The second result is false for
// rows that must be dropped: an empty id or a header label.
func (s CaseSchema) DecodeCase(row WireRow) (CaseRecord, bool) {
	idx := row.index()
	c := CaseRecord{
		ID:         strings.TrimSpace(stringValue(s.ID, idx)),
		Name:       strings.TrimSpace(stringValue(s.Name, idx)),
		ReportURLA: strings.TrimSpace(stringValue(s.ReportA, idx)),
		ReportURLB: strings.TrimSpace(stringValue(s.ReportB, idx)),
	}
	if c.ID == "" || s.IsHeaderRow(c.ID) {
		return CaseRecord{}, false
	}
	return c, true
}

// DecodeSubmission maps a row to a submission record.
func (s SubmissionSchema) DecodeSubmission(row WireRow) SubmissionRecord {
	idx := row.index()
	rec := SubmissionRecord{
		RowID:     intValue(s.RowID, idx),
		CaseID:    strings.TrimSpace(stringValue(s.CaseID, idx)),
		Name:      stringValue(s.Name, idx),
		Timestamp: stringValue(s.Timestamp, idx),
		Status: StatusFields{
			ASC:  stringValue(s.ASC, idx),
			ADHD: stringValue(s.ADHD, idx),
		},
		FreeText:  make(map[FieldID]string, len(s.Fields)),
		Referrals: DecodeReferrals(stringValue(s.Referrals, idx)),
	}
	for f, aliases := range s.Fields {
		rec.FreeText[f] = stringValue(aliases, idx)
	}
	return rec
}

// EncodeSubmission maps a record to wire keys. The row id is never encoded;
// it travels in the request path.
func (s SubmissionSchema) EncodeSubmission(rec SubmissionRecord) WireRow {
	row := WireRow{
		s.CaseID.Primary():    rec.CaseID,
		s.Name.Primary():      rec.Name,
		s.Timestamp.Primary(): rec.Timestamp,
		s.ASC.Primary():       rec.Status.ASC,
		s.ADHD.Primary():      rec.Status.ADHD,
		s.Referrals.Primary(): rec.Referrals.Encode(),
	}
	for f, aliases := range s.Fields {
		row[aliases.Primary()] = rec.Text(f)
	}
	return row
}

func stringValue(a Aliases, idx map[string]any) string {
	v, ok := a.lookup(idx)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func intValue(a Aliases, idx map[string]any) int {
	v, ok := a.lookup(idx)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}
