package classifier

// Label is a classification tag produced by the rule engine.
type Label string

const (
	LabelTextOnly          Label = "text-only"
	LabelContainsLink      Label = "contains-link"
	LabelSuspiciousContent Label = "suspicious-content"
	LabelPotentialPhishing Label = "potential-phishing"
	LabelUrgentLanguage    Label = "urgent-language"
	LabelMoneyRelated      Label = "money-related"
)

// displayNames maps rule labels to the Gmail label names shown to the user.
var displayNames = map[Label]string{
	LabelTextOnly:          "Text Only",
	LabelContainsLink:      "Contains Link",
	LabelSuspiciousContent: "Suspicious Content",
	LabelPotentialPhishing: "Potential Phishing",
	LabelUrgentLanguage:    "Urgent Language",
	LabelMoneyRelated:      "Money Related",
}

// IsValid reports whether l is part of the fixed rule vocabulary.
func (l Label) IsValid() bool {
	_, ok := displayNames[l]
	return ok
}

func (l Label) String() string {
	return string(l)
}

// DisplayName returns the Gmail label name for a rule label.
// Unknown labels fall back to their raw string form.
func (l Label) DisplayName() string {
	if name, ok := displayNames[l]; ok {
		return name
	}
	return string(l)
}
