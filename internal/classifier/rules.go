package classifier

import (
	"regexp"
	"sort"
	"strings"
)

// RuleResult holds the outcome of rule-based content analysis.
type RuleResult struct {
	HasText        bool `json:"text"`
	HasLink        bool `json:"link"`
	Suspicious     bool `json:"suspicious"`
	UrgentLanguage bool `json:"urgent_language"`
	MoneyRelated   bool `json:"money_related"`
}

// PotentialPhishing reports whether the combination of suspicious and
// money-related patterns indicates a likely phishing attempt.
func (r RuleResult) PotentialPhishing() bool {
	return r.Suspicious && r.MoneyRelated
}

// Labels derives the label set from the individual checks.
// An empty body produces an empty set; a body with no trigger patterns
// produces exactly {text-only}.
func (r RuleResult) Labels() []Label {
	var labels []Label

	if r.HasLink {
		labels = append(labels, LabelContainsLink)
	} else if r.HasText {
		labels = append(labels, LabelTextOnly)
	}

	if r.Suspicious {
		if r.MoneyRelated {
			labels = append(labels, LabelPotentialPhishing)
		} else {
			labels = append(labels, LabelSuspiciousContent)
		}
	}

	if r.UrgentLanguage {
		labels = append(labels, LabelUrgentLanguage)
	}

	if r.MoneyRelated {
		labels = append(labels, LabelMoneyRelated)
	}

	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// RuleClassifier inspects raw email text for links, phishing heuristics,
// urgency keywords and money-related keywords. It is a pure function over
// the body text and holds only precompiled patterns.
type RuleClassifier struct {
	linkPatterns       []*regexp.Regexp
	suspiciousPatterns []*regexp.Regexp
	urgentPatterns     []*regexp.Regexp
	moneyPatterns      []*regexp.Regexp
}

// NewRuleClassifier creates a classifier with all patterns compiled.
func NewRuleClassifier() *RuleClassifier {
	rc := &RuleClassifier{}
	rc.initializePatterns()
	return rc
}

func (rc *RuleClassifier) initializePatterns() {
	rc.linkPatterns = compileAll([]string{
		`https?://[^\s<>"]+`,
		`www\.[^\s<>"]+`,
		`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
		`ftp://[^\s<>"]+`,
	})

	rc.suspiciousPatterns = compileAll([]string{
		`urgent.*action.*required`,
		`account.*suspended`,
		`verify.*account`,
		`click.*here.*immediately`,
		`limited.*time.*offer`,
		`free.*money`,
		`lottery.*winner`,
		`bank.*transfer`,
		`password.*expired`,
		`security.*alert`,
		`unusual.*activity`,
		`login.*attempt`,
		`confirm.*details`,
		`update.*information`,
		`claim.*prize`,
		`congratulations.*winner`,
		`you.*won`,
		`claim.*reward`,
		`urgent.*response.*needed`,
		`account.*locked`,
	})

	rc.urgentPatterns = compileAll([]string{
		`urgent`,
		`immediate.*action`,
		`act.*now`,
		`\bnow!`,
		`limited.*time`,
		`expires.*soon`,
		`last.*chance`,
		`final.*notice`,
		`deadline`,
		`\basap\b`,
		`emergency`,
		`critical`,
		`important.*notice`,
	})

	rc.moneyPatterns = compileAll([]string{
		`\$\d+`,
		`\bmoney\b`,
		`dollar`,
		`payment`,
		`invoice`,
		`\bbill\b`,
		`bank.*account`,
		`credit.*card`,
		`paypal`,
		`bank.*transfer`,
		`wire.*transfer`,
		`\bcheck\b`,
		`\bcash\b`,
		`prize.*money`,
		`refund`,
		`payment.*due`,
		`overdue.*payment`,
	})
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Classify analyzes the plain-text body and returns the rule checks.
// Malformed input is treated as an empty string.
func (rc *RuleClassifier) Classify(body string) RuleResult {
	result := RuleResult{}

	if strings.TrimSpace(body) == "" {
		return result
	}
	result.HasText = true

	result.HasLink = matchAny(rc.linkPatterns, body)
	result.Suspicious = matchAny(rc.suspiciousPatterns, body)
	result.UrgentLanguage = matchAny(rc.urgentPatterns, body)
	result.MoneyRelated = matchAny(rc.moneyPatterns, body)

	return result
}

func matchAny(patterns []*regexp.Regexp, content string) bool {
	for _, p := range patterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}
