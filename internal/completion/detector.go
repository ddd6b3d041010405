// Package completion decides whether a model reply ends the current stage.
package completion

import (
	"fmt"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"golang.org/x/text/unicode/norm"
)

// Policy matches a completion marker against a reply. Both arrive NFC-normalized.
type Policy interface {
	Matches(reply, marker string) bool
}

// SubstringPolicy completes the stage when the marker appears anywhere in the reply.
// A reply that merely quotes the marker mid-sentence also completes the stage.
type SubstringPolicy struct{}

func (SubstringPolicy) Matches(reply, marker string) bool {
	return strings.Contains(reply, marker)
}

// TrailingPolicy completes the stage only when the reply ends with the phrase,
// ignoring trailing whitespace and closing quotes.
type TrailingPolicy struct {
	// Phrase overrides the marker as the required ending when set.
	Phrase string
}

func (p TrailingPolicy) Matches(reply, marker string) bool {
	want := marker
	if p.Phrase != "" {
		want = norm.NFC.String(p.Phrase)
	}
	got := strings.TrimRight(reply, " \t\r\n\"'”»")
	want = strings.TrimRight(want, " \t\r\n\"'”»")
	return want != "" && strings.HasSuffix(got, want)
}

// Policy names accepted under flow.completionPolicy.
const (
	PolicySubstring = "substring"
	PolicyTrailing  = "trailing"
)

// PolicyByName returns the policy configured under flow.completionPolicy.
// An empty name selects substring matching; any other unknown name is a ConfigurationError.
func PolicyByName(name string, phrase string) (Policy, error) {
	switch name {
	case "", PolicySubstring:
		return SubstringPolicy{}, nil
	case PolicyTrailing:
		return TrailingPolicy{Phrase: phrase}, nil
	}
	return nil, types.ConfigurationError("completion policy", fmt.Sprintf("unknown completion policy %q (use substring or trailing)", name), nil)
}

// Result is the outcome of checking one reply.
type Result struct {
	Complete bool
	// Display is the reply as it should be shown, with the outro appended on completion.
	Display string
}

// Detector checks replies for one stage.
type Detector struct {
	policy Policy
	marker string
	outro  string
}

// New creates a detector for a stage's completion settings.
func New(policy Policy, c config.Completion) *Detector {
	if policy == nil {
		policy = SubstringPolicy{}
	}
	return &Detector{policy: policy, marker: c.Marker, outro: c.Outro}
}

// Check classifies reply. An empty marker never completes.
func (d *Detector) Check(reply string) Result {
	reply = norm.NFC.String(reply)
	marker := norm.NFC.String(d.marker)
	if marker == "" || !d.policy.Matches(reply, marker) {
		return Result{Display: reply}
	}

	display := reply
	outro := norm.NFC.String(d.outro)
	if strings.TrimSpace(outro) != "" && !strings.Contains(reply, strings.TrimSpace(outro)) {
		display += outro
	}
	return Result{Complete: true, Display: display}
}
