package ai

import "context"

// ConcernDescriptor carries the anonymized details the generator needs to
// produce intervention guidance. No personally identifying information beyond
// a first name and last initial ever reaches the model.
type ConcernDescriptor struct {
	StudentFirstName   string
	StudentLastInitial string
	GradeLevel         string
	TaskType           string
	Severity           string
	ConcernTypes       []string
	ConcernDescription string
	ActionsTaken       []string
}

// Recommendation is the generator's output: guidance text plus the
// professional-judgment disclaimer that must accompany every delivery.
type Recommendation struct {
	Text       string
	Disclaimer string
}

// Generator defines an interface for producing AI intervention guidance.
// This decouples the submission pipeline from the specific model provider.
type Generator interface {
	// Generate produces the initial draft for a new submission. A failure
	// must abort submission creation; a submission is never stored without
	// its draft.
	Generate(ctx context.Context, req ConcernDescriptor) (*Recommendation, error)

	// FollowUp answers a teacher's follow-up question about previously
	// generated guidance.
	FollowUp(ctx context.Context, req ConcernDescriptor, priorText, question string) (*Recommendation, error)
}
