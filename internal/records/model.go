package records

import "strings"

// KeyPrefix namespaces analysis records in the key-value store.
const KeyPrefix = "resume:"

// Key returns the storage key for a record id.
func Key(id string) string {
	return KeyPrefix + id
}

// IDFromKey strips KeyPrefix, reporting whether key carried it.
func IDFromKey(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, KeyPrefix)
	return id, ok && id != ""
}

// Record is one analysis record. A nil Feedback means analysis is pending.
type Record struct {
	ID             string
	ResumePath     string
	ImagePath      string
	CompanyName    string
	JobTitle       string
	JobDescription string
	Feedback       *Feedback
}

// Pending reports whether feedback has not been stored yet.
func (r Record) Pending() bool {
	return r.Feedback == nil
}

// WithFeedback returns a copy of r carrying fb.
func (r Record) WithFeedback(fb *Feedback) Record {
	r.Feedback = fb
	return r
}

// Feedback is the structured evaluation of a résumé.
type Feedback struct {
	OverallScore int              `json:"overallScore" validate:"gte=0,lte=100"`
	ATS          ATSFeedback      `json:"ATS"`
	ToneAndStyle CategoryFeedback `json:"toneAndStyle"`
	Content      CategoryFeedback `json:"content"`
	Structure    CategoryFeedback `json:"structure"`
	Skills       CategoryFeedback `json:"skills"`
}

// ATSFeedback scores applicant-tracking-system compatibility.
type ATSFeedback struct {
	Score int      `json:"score" validate:"gte=0,lte=100"`
	Tips  []ATSTip `json:"tips" validate:"dive"`
}

type ATSTip struct {
	Type string `json:"type" validate:"oneof=good improve"`
	Tip  string `json:"tip" validate:"required"`
}

// CategoryFeedback scores one review dimension.
type CategoryFeedback struct {
	Score int           `json:"score" validate:"gte=0,lte=100"`
	Tips  []DetailedTip `json:"tips" validate:"dive"`
}

type DetailedTip struct {
	Type        string `json:"type" validate:"oneof=good improve"`
	Tip         string `json:"tip" validate:"required"`
	Explanation string `json:"explanation"`
}
