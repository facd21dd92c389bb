package domain

import (
	"strings"
	"unicode/utf8"
)

// DefaultCharLimit is the character limit applied to free-text fields.
const DefaultCharLimit = 2000

// Bullet starts every line of a free-text field.
const Bullet = "• "

// FieldSpec configures one free-text field.
type FieldSpec struct {
	ID          FieldID
	Title       string
	DefaultText string
	CharLimit   int
}

// Truncate cuts text to the field's character limit.
// Limits count runes, so multi-byte characters are never split.
// A non-positive limit disables truncation.
func (s FieldSpec) Truncate(text string) string {
	return TruncateRunes(text, s.CharLimit)
}

// Normalize formats text as a bullet list and then truncates it.
func (s FieldSpec) Normalize(text string) string {
	return s.Truncate(BulletText(text))
}

// BulletText formats text as a bullet list. Non-blank lines without a bullet
// gain one and blank lines stay blank. Text without content becomes a single
// empty bullet. Applying it twice changes nothing.
func BulletText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return Bullet
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case trimmed == "":
			lines[i] = ""
		case strings.HasPrefix(trimmed, Bullet):
			lines[i] = trimmed
		case strings.HasPrefix(trimmed, "•"):
			lines[i] = Bullet + strings.TrimLeft(strings.TrimPrefix(trimmed, "•"), " \t")
		default:
			lines[i] = Bullet + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

// TruncateRunes returns the first limit runes of text.
func TruncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

// DefaultFieldSpecs returns the R3 form fields with their prompt text.
func DefaultFieldSpecs() []FieldSpec {
	return []FieldSpec{
		{
			ID:    FieldClinicalObservations,
			Title: "Key Clinical Observations",
			DefaultText: "• Social engagement patterns\n" +
				"• Communication style\n" +
				"• Response to activities\n" +
				"• Behavioral patterns\n" +
				"• Notable strengths/challenges",
			CharLimit: DefaultCharLimit,
		},
		{
			ID:    FieldStrengthsAbilities,
			Title: "Strengths & Abilities",
			DefaultText: "• Memory (e.g., Strong recall of sequences)\n" +
				"• Visual (e.g., Pattern recognition)\n" +
				"• Physical (e.g., Fine motor skills)\n" +
				"• Creative (e.g., Problem-solving abilities)\n" +
				"• Focus (e.g., Sustained attention)\n" +
				"• Problem-solving (e.g., Logical approach)",
			CharLimit: DefaultCharLimit,
		},
		{
			ID:    FieldPrioritySupport,
			Title: "Priority Support Areas",
			DefaultText: "• Assessment data patterns\n" +
				"• Family priorities\n" +
				"• School observations\n" +
				"• Clinical judgment",
			CharLimit: DefaultCharLimit,
		},
		{
			ID:    FieldSupportRecommendations,
			Title: "Support Recommendations",
			DefaultText: "• Strength-based strategies\n" +
				"• Practical implementation\n" +
				"• Home/school alignment\n" +
				"• Family resources",
			CharLimit: DefaultCharLimit,
		},
	}
}

// FindFieldSpec returns the spec for a field, or false.
func FindFieldSpec(specs []FieldSpec, id FieldID) (FieldSpec, bool) {
	for _, s := range specs {
		if s.ID == id {
			return s, true
		}
	}
	return FieldSpec{}, false
}

// FormState is the in-progress form for one process lifetime.
// It is owned by the form controller and persisted after debounced edits.
type FormState struct {
	CaseID    string             `json:"caseId,omitempty"`
	Status    StatusFields       `json:"status"`
	Fields    map[FieldID]string `json:"fields"`
	Referrals Referrals          `json:"referrals"`
}

// NewFormState returns a form with every field set to its default text.
func NewFormState(specs []FieldSpec) FormState {
	fields := make(map[FieldID]string, len(specs))
	for _, s := range specs {
		fields[s.ID] = s.DefaultText
	}
	return FormState{Fields: fields}
}

// Clone returns a deep copy of the state.
func (s FormState) Clone() FormState {
	out := s
	out.Fields = make(map[FieldID]string, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	if s.Referrals.Checked != nil {
		out.Referrals.Checked = append([]string(nil), s.Referrals.Checked...)
	}
	return out
}

// Record assembles a submission from the form state.
func (s FormState) Record(c CaseRecord, timestamp string) SubmissionRecord {
	text := make(map[FieldID]string, len(s.Fields))
	for k, v := range s.Fields {
		text[k] = v
	}
	return SubmissionRecord{
		CaseID:    c.ID,
		Name:      c.Name,
		Timestamp: timestamp,
		Status:    s.Status,
		FreeText:  text,
		Referrals: Referrals{
			Checked: append([]string(nil), s.Referrals.Checked...),
			Remarks: s.Referrals.Remarks,
		},
	}
}

// Missing returns the required inputs that are not yet supplied.
func (s FormState) Missing() []string {
	var missing []string
	if s.CaseID == "" {
		missing = append(missing, "case")
	}
	if s.Status.ASC == "" {
		missing = append(missing, "ASC status")
	}
	if s.Status.ADHD == "" {
		missing = append(missing, "ADHD status")
	}
	return missing
}
