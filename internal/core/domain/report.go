package domain

// ReportStage is one step of the document generation pipeline.
type ReportStage string

// Pipeline stages, run in this order.
const (
	ReportStageTemplate ReportStage = "template"
	ReportStageAnalysis ReportStage = "analysis"
	ReportStageReport   ReportStage = "report"
)

// AllReportStages returns the stages in execution order.
func AllReportStages() []ReportStage {
	return []ReportStage{ReportStageTemplate, ReportStageAnalysis, ReportStageReport}
}

// IsValid returns true if the stage is recognised.
func (s ReportStage) IsValid() bool {
	switch s {
	case ReportStageTemplate, ReportStageAnalysis, ReportStageReport:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ReportStage) String() string {
	return string(s)
}

// Description returns the progress text shown while the stage runs.
func (s ReportStage) Description() string {
	switch s {
	case ReportStageTemplate:
		return "Preparing template"
	case ReportStageAnalysis:
		return "Analysing data"
	case ReportStageReport:
		return "Generating report"
	default:
		return unknownDescription
	}
}

// EmailStatus reports delivery of the generated document.
type EmailStatus struct {
	Sent           bool   `json:"sent"`
	RecipientEmail string `json:"recipientEmail"`
	Error          string `json:"error"`
}

// StageDetails carries the report stage outputs.
type StageDetails struct {
	DocumentURL string       `json:"documentUrl"`
	EmailStatus *EmailStatus `json:"emailStatus"`
}

// StageProgress is the progress block of a stage response.
type StageProgress struct {
	Status     string        `json:"status"`
	Message    string        `json:"message"`
	Step       int           `json:"step"`
	TotalSteps int           `json:"totalSteps"`
	Details    *StageDetails `json:"details"`
}

// StageResult is the decoded payload of one script call.
type StageResult struct {
	Stage    ReportStage    `json:"-"`
	Success  *bool          `json:"success"`
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Error    string         `json:"error"`
	Progress *StageProgress `json:"progress"`
}

// Failed reports whether the script signalled an error.
func (r StageResult) Failed() bool {
	if r.Success != nil && !*r.Success {
		return true
	}
	if r.Progress != nil && r.Progress.Status == "error" {
		return true
	}
	return r.Error != "" || r.Status == "error"
}

// FailureMessage returns the most specific error text of a failed stage.
func (r StageResult) FailureMessage() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Progress != nil && r.Progress.Message != "":
		return r.Progress.Message
	case r.Message != "":
		return r.Message
	default:
		return "stage failed"
	}
}

// ReportResult is the outcome of a completed pipeline.
type ReportResult struct {
	CaseID      string
	DocumentURL string
	EmailSent   bool
	Recipient   string
	EmailError  string
}

// ReportProgress receives a message as the pipeline advances.
type ReportProgress func(stage string, message string)
