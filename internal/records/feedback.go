package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func feedbackValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// requiredSections must be present in every feedback object.
var requiredSections = []string{"overallScore", "ATS", "toneAndStyle", "content", "structure", "skills"}

// ParseFeedback parses inference text into Feedback. Any decode or shape
// failure wraps ErrFeedbackShape.
func ParseFeedback(text string) (*Feedback, error) {
	data := bytes.TrimSpace([]byte(text))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty text", ErrFeedbackShape)
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedbackShape, err)
	}
	for _, key := range requiredSections {
		if _, ok := sections[key]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrFeedbackShape, key)
		}
	}

	var fb Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedbackShape, err)
	}
	if err := feedbackValidator().Struct(fb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedbackShape, err)
	}
	return &fb, nil
}
