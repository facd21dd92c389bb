package domain

// CaseRecord is one assessment subject from the case list sheet.
// Records are immutable once fetched and live for one cache window.
type CaseRecord struct {
	// ID is the case identifier (the CHATA ID). Unique and non-empty.
	ID string `json:"id"`

	// Name is the subject's display name. May be empty.
	Name string `json:"name"`

	// ReportURLA is the first reference report (R1), if generated.
	ReportURLA string `json:"reportUrlA,omitempty"`

	// ReportURLB is the second reference report (R2), if generated.
	ReportURLB string `json:"reportUrlB,omitempty"`
}

// Label returns the selector text for the case, e.g. "C001 - Alice".
func (c CaseRecord) Label() string {
	if c.Name == "" {
		return c.ID
	}
	return c.ID + " - " + c.Name
}

// ReportURLs returns the case's reference document URLs.
func (c CaseRecord) ReportURLs() ReportURLs {
	return ReportURLs{A: c.ReportURLA, B: c.ReportURLB}
}

// ReportURLs holds the two reference document URLs shown beside the form.
type ReportURLs struct {
	A string `json:"r1Url,omitempty"`
	B string `json:"r2Url,omitempty"`
}

// IsEmpty reports whether neither URL is set.
func (u ReportURLs) IsEmpty() bool {
	return u.A == "" && u.B == ""
}

// ViewerSlot is one embedded document viewer beside the form.
type ViewerSlot struct {
	// Title is the viewer heading, e.g. "R1 Report".
	Title string
	// URL is the document shown, empty when the placeholder is displayed.
	URL string
}

// Placeholder reports whether the viewer has no document to show.
func (v ViewerSlot) Placeholder() bool {
	return v.URL == ""
}

// Viewers returns the two viewer slots for a set of report URLs.
func (u ReportURLs) Viewers() [2]ViewerSlot {
	return [2]ViewerSlot{
		{Title: "R1 Report", URL: u.A},
		{Title: "R2 Report", URL: u.B},
	}
}

// FindCase returns the case with the given id, or false.
func FindCase(cases []CaseRecord, id string) (CaseRecord, bool) {
	for _, c := range cases {
		if c.ID == id {
			return c, true
		}
	}
	return CaseRecord{}, false
}

// CaseView is what the form shows after a case is selected.
type CaseView struct {
	Case     CaseRecord
	Existing *SubmissionRecord
	Viewers  [2]ViewerSlot
}
