package domain

import (
	"strings"
	"time"
)

// FieldID names one long-form text field of the R3 form.
type FieldID string

// The four free-text fields, in display order.
const (
	FieldClinicalObservations   FieldID = "keyClinicalObservations"
	FieldStrengthsAbilities     FieldID = "strengthsAndAbilities"
	FieldPrioritySupport        FieldID = "prioritySupportAreas"
	FieldSupportRecommendations FieldID = "supportRecommendations"
)

// AllFields returns the free-text fields in display order.
func AllFields() []FieldID {
	return []FieldID{
		FieldClinicalObservations,
		FieldStrengthsAbilities,
		FieldPrioritySupport,
		FieldSupportRecommendations,
	}
}

// IsValid returns true if the field is one of the form's text fields.
func (f FieldID) IsValid() bool {
	switch f {
	case FieldClinicalObservations, FieldStrengthsAbilities, FieldPrioritySupport, FieldSupportRecommendations:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f FieldID) String() string {
	return string(f)
}

// StatusFields holds the two enumerated diagnostic status selectors.
type StatusFields struct {
	ASC  string `json:"ascStatus"`
	ADHD string `json:"adhdStatus"`
}

// Referrals is the professional referrals checklist.
type Referrals struct {
	Checked []string `json:"checked"`
	Remarks string   `json:"remarks"`
}

const (
	referralsPrefix = "Selected referrals: "
	remarksPrefix   = "Remarks: "
	noReferrals     = "No referrals selected"
)

// IsEmpty reports whether nothing is checked and no remark is entered.
func (r Referrals) IsEmpty() bool {
	return len(r.Checked) == 0 && strings.TrimSpace(r.Remarks) == ""
}

// Has reports whether an option is checked.
func (r Referrals) Has(option string) bool {
	for _, c := range r.Checked {
		if c == option {
			return true
		}
	}
	return false
}

// Encode renders the checklist as the single spreadsheet cell value.
func (r Referrals) Encode() string {
	if r.IsEmpty() {
		return noReferrals
	}
	var b strings.Builder
	b.WriteString(referralsPrefix)
	b.WriteString(strings.Join(r.Checked, ", "))
	if remarks := strings.TrimSpace(r.Remarks); remarks != "" {
		b.WriteString("\n")
		b.WriteString(remarksPrefix)
		b.WriteString(remarks)
	}
	return b.String()
}

// DecodeReferrals parses a referrals cell. It accepts the encoded form,
// the "No referrals selected" marker and a bare comma separated list.
func DecodeReferrals(s string) Referrals {
	s = strings.TrimSpace(s)
	if s == "" || s == noReferrals {
		return Referrals{}
	}

	var r Referrals
	list := s
	if i := strings.Index(s, "\n"+remarksPrefix); i >= 0 {
		list = s[:i]
		r.Remarks = strings.TrimSpace(s[i+len(remarksPrefix)+1:])
	} else if strings.HasPrefix(s, remarksPrefix) {
		r.Remarks = strings.TrimSpace(strings.TrimPrefix(s, remarksPrefix))
		return r
	}

	list = strings.TrimPrefix(list, referralsPrefix)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			r.Checked = append(r.Checked, item)
		}
	}
	return r
}

// SubmissionRecord is one row of the R3 form submission log.
//
// The remote store does not enforce CaseID uniqueness; whether a case already
// has a submission is decided by a client-side scan (see SelectExisting).
type SubmissionRecord struct {
	// RowID is assigned by the remote store. Zero for unsaved records.
	RowID int `json:"id"`

	// CaseID references CaseRecord.ID.
	CaseID string `json:"caseId"`

	// Name is the subject's name, copied from the case list at submit time.
	Name string `json:"name,omitempty"`

	// Timestamp is an ISO-8601 string as stored in the sheet.
	Timestamp string `json:"timestamp"`

	Status    StatusFields       `json:"status"`
	FreeText  map[FieldID]string `json:"freeText"`
	Referrals Referrals          `json:"referrals"`
}

// Time parses Timestamp. Returns the zero time if it is not RFC 3339.
func (r SubmissionRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Timestamp))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Text returns the value of a free-text field.
func (r SubmissionRecord) Text(f FieldID) string {
	if r.FreeText == nil {
		return ""
	}
	return r.FreeText[f]
}

// SelectExisting returns the canonical submission for a case, or nil.
//
// Several rows may carry the same case id. The row with the latest parseable
// timestamp wins; rows with equal or unparseable timestamps fall back to the
// highest row id.
func SelectExisting(records []SubmissionRecord, caseID string) *SubmissionRecord {
	if caseID == "" {
		return nil
	}

	var best *SubmissionRecord
	for i := range records {
		rec := &records[i]
		if rec.CaseID != caseID {
			continue
		}
		if best == nil || newer(rec, best) {
			best = rec
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

func newer(a, b *SubmissionRecord) bool {
	ta, tb := a.Time(), b.Time()
	switch {
	case !ta.IsZero() && !tb.IsZero() && !ta.Equal(tb):
		return ta.After(tb)
	case !ta.IsZero() && tb.IsZero():
		return true
	case ta.IsZero() && !tb.IsZero():
		return false
	default:
		return a.RowID > b.RowID
	}
}

// SubmitResult describes a completed create or update.
type SubmitResult struct {
	RowID   int
	CaseID  string
	Updated bool
}

// Lookup is the tracker's finding for the selected case.
// The zero value means no prior submission.
type Lookup struct {
	CaseID string
	RowID  int
	Found  bool
}

// LookupFor returns the finding for a possibly nil record.
func LookupFor(caseID string, rec *SubmissionRecord) Lookup {
	if rec == nil {
		return Lookup{CaseID: caseID}
	}
	return Lookup{CaseID: caseID, RowID: rec.RowID, Found: true}
}
