package llm

import (
	_ "embed"
	"strings"
)

//go:embed response_format.txt
var ResponseFormat string

const instructionsTemplate = `You are an expert in ATS (Applicant Tracking System) and resume analysis.
Please analyze and rate this resume and suggest how to improve it.
The rating can be low if the resume is bad.
Be thorough and detailed. Don't be afraid to point out any mistakes or areas for improvement.
If provided, take the job description into consideration.
The job title is: {{JOB_TITLE}}
The job description is: {{JOB_DESCRIPTION}}
Provide the feedback using the following format:
{{FORMAT}}
Return the analysis as a JSON object, without any other text and without backticks.
Do not include any other text or comments.`

// PrepareInstructions fills the evaluation template for one submission.
func PrepareInstructions(jobTitle, jobDescription string) string {
	r := strings.NewReplacer(
		"{{JOB_TITLE}}", strings.TrimSpace(jobTitle),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription),
		"{{FORMAT}}", strings.TrimSpace(ResponseFormat),
	)
	return r.Replace(instructionsTemplate)
}
