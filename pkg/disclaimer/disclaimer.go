package disclaimer

// Severity levels understood by the composer
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeverityUrgent   = "urgent"
)

const (
	mildText = "This response was drafted with the help of AI and reviewed against our guidelines. " +
		"Reply to this message if anything is unclear."
	moderateText = "This response was drafted with the help of AI. It is general information, not professional advice. " +
		"If your situation changes or gets worse, please contact a qualified professional."
	urgentText = "This response was drafted with the help of AI and cannot replace immediate help. " +
		"If you or someone else is in danger, contact your local emergency services now."
)

const separator = "\n\n---\n"

// Composer turns a severity level into the trailing disclaimer of an outgoing message
type Composer interface {
	Compose(severity string) string
}

// StaticComposer returns a fixed disclaimer text per severity
type StaticComposer struct{}

// NewComposer creates the default disclaimer composer
func NewComposer() *StaticComposer {
	return &StaticComposer{}
}

// Compose returns the disclaimer block for severity, separator included.
// Unknown severities get the mild text.
func (StaticComposer) Compose(severity string) string {
	switch severity {
	case SeverityUrgent:
		return separator + urgentText
	case SeverityModerate:
		return separator + moderateText
	default:
		return separator + mildText
	}
}
