package pipeline

import "fmt"

// Stage is a position in the analysis state machine.
type Stage int

const (
	Idle Stage = iota
	UploadingFile
	ConvertingImage
	UploadingImage
	PreparingRecord
	SavingInitialRecord
	RequestingAnalysis
	ParsingFeedback
	SavingFinalRecord
	VerifyingRecord
	Navigating
)

var stageNames = [...]string{
	Idle:                "Idle",
	UploadingFile:       "UploadingFile",
	ConvertingImage:     "ConvertingImage",
	UploadingImage:      "UploadingImage",
	PreparingRecord:     "PreparingRecord",
	SavingInitialRecord: "SavingInitialRecord",
	RequestingAnalysis:  "RequestingAnalysis",
	ParsingFeedback:     "ParsingFeedback",
	SavingFinalRecord:   "SavingFinalRecord",
	VerifyingRecord:     "VerifyingRecord",
	Navigating:          "Navigating",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// transitions is the only path through the pipeline. Navigating returns to
// Idle once the caller has been sent to the review.
var transitions = map[Stage]Stage{
	Idle:                UploadingFile,
	UploadingFile:       ConvertingImage,
	ConvertingImage:     UploadingImage,
	UploadingImage:      PreparingRecord,
	PreparingRecord:     SavingInitialRecord,
	SavingInitialRecord: RequestingAnalysis,
	RequestingAnalysis:  ParsingFeedback,
	ParsingFeedback:     SavingFinalRecord,
	SavingFinalRecord:   VerifyingRecord,
	VerifyingRecord:     Navigating,
	Navigating:          Idle,
}

// Next returns the stage that follows s.
func Next(s Stage) Stage {
	if next, ok := transitions[s]; ok {
		return next
	}
	return Idle
}

var statusMessages = map[Stage]string{
	UploadingFile:       "Uploading the file...",
	ConvertingImage:     "Converting to image...",
	UploadingImage:      "Uploading the image...",
	PreparingRecord:     "Preparing data...",
	SavingInitialRecord: "Saving resume data...",
	RequestingAnalysis:  "Analyzing...",
	ParsingFeedback:     "Parsing analysis results...",
	SavingFinalRecord:   "Saving analysis results...",
	VerifyingRecord:     "Verifying saved data...",
	Navigating:          "Analysis complete, redirecting...",
}

var failureMessages = map[Stage]string{
	UploadingFile:       "Error: failed to upload file",
	ConvertingImage:     "Error: failed to convert PDF to image",
	UploadingImage:      "Error: failed to upload image",
	PreparingRecord:     "Error: failed to prepare resume data",
	SavingInitialRecord: "Error: failed to save resume data",
	RequestingAnalysis:  "Error: failed to analyze resume",
	ParsingFeedback:     "Error: failed to parse analysis results",
	SavingFinalRecord:   "Error: failed to save resume data",
	VerifyingRecord:     "Error: failed to verify saved resume data",
	Navigating:          "Error: Invalid resume ID generated",
}

// Status is the message shown while s runs.
func (s Stage) Status() string {
	return statusMessages[s]
}

// FailureStatus is the message shown when s aborts. Only the conversion
// stage includes its cause.
func (s Stage) FailureStatus(cause error) string {
	msg := failureMessages[s]
	if s == ConvertingImage {
		reason := "Unknown error occurred"
		if cause != nil {
			reason = cause.Error()
		}
		return msg + " - " + reason
	}
	return msg
}

var stageKinds = map[Stage]error{
	UploadingFile:       ErrUpload,
	ConvertingImage:     ErrRasterization,
	UploadingImage:      ErrUpload,
	PreparingRecord:     ErrPersistenceWrite,
	SavingInitialRecord: ErrPersistenceWrite,
	RequestingAnalysis:  ErrInference,
	ParsingFeedback:     ErrFeedbackParse,
	SavingFinalRecord:   ErrPersistenceWrite,
	VerifyingRecord:     ErrPersistenceVerification,
	Navigating:          ErrInvalidIdentifier,
}

// Kind is the failure kind reported when s aborts without a more specific
// one, such as when its collaborator panics.
func (s Stage) Kind() error {
	return stageKinds[s]
}
