package records

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireRecord is the stored text form. Feedback is "" while pending.
type wireRecord struct {
	ID             string          `json:"id"`
	ResumePath     string          `json:"resumePath"`
	ImagePath      string          `json:"imagePath"`
	CompanyName    string          `json:"companyName"`
	JobTitle       string          `json:"jobTitle"`
	JobDescription string          `json:"jobDescription"`
	Feedback       json.RawMessage `json:"feedback"`
}

var emptyFeedback = json.RawMessage(`""`)

// MarshalJSON encodes the record in its stored form.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		ID:             r.ID,
		ResumePath:     r.ResumePath,
		ImagePath:      r.ImagePath,
		CompanyName:    r.CompanyName,
		JobTitle:       r.JobTitle,
		JobDescription: r.JobDescription,
		Feedback:       emptyFeedback,
	}
	if r.Feedback != nil {
		fb, err := json.Marshal(r.Feedback)
		if err != nil {
			return nil, err
		}
		w.Feedback = fb
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts feedback as an object, "", null or absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec := Record{
		ID:             w.ID,
		ResumePath:     w.ResumePath,
		ImagePath:      w.ImagePath,
		CompanyName:    w.CompanyName,
		JobTitle:       w.JobTitle,
		JobDescription: w.JobDescription,
	}
	raw := bytes.TrimSpace(w.Feedback)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, emptyFeedback):
	default:
		var fb Feedback
		if err := json.Unmarshal(raw, &fb); err != nil {
			return fmt.Errorf("feedback: %w", err)
		}
		rec.Feedback = &fb
	}
	*r = rec
	return nil
}

// Encode returns the stored text form of rec.
func Encode(rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return string(data), nil
}

// Decode parses a stored record.
func Decode(text string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rec.ID == "" {
		return Record{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	return rec, nil
}
