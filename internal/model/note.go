package model

// SOAP-style note fields that carry embeddable clinical text.
const (
	FieldSubjective = "subjective"
	FieldObjective  = "objective"
	FieldAssessment = "assessment"
	FieldPlan       = "plan"
)

// EmbeddableNoteFields is the fan-out set used by retrieval and the sync job.
var EmbeddableNoteFields = []string{FieldSubjective, FieldObjective, FieldAssessment, FieldPlan}

// Note is a read-only projection of a clinical note. Note persistence lives
// in the practice-management layer; this subsystem only reads field text.
type Note struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	ClientID    string `json:"client_id"`
	Subjective  string `json:"subjective"`
	Objective   string `json:"objective"`
	Assessment  string `json:"assessment"`
	Plan        string `json:"plan"`
	Mtime       int64  `json:"mtime"`
}

// FieldText returns the raw markdown of one SOAP field.
func (n *Note) FieldText(field string) string {
	switch field {
	case FieldSubjective:
		return n.Subjective
	case FieldObjective:
		return n.Objective
	case FieldAssessment:
		return n.Assessment
	case FieldPlan:
		return n.Plan
	}
	return ""
}
