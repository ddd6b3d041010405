package prompts

import (
	"fmt"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Placeholder names the core supplies itself. Question keys must not collide with them.
const (
	KeyPersona             = "persona"
	KeyOneShot             = "one_shot"
	KeyEndPrompt           = "end_prompt"
	KeyContext             = "context"
	KeyHistory             = "history"
	KeyInput               = "input"
	KeyConversationHistory = "conversation_history"
	KeyScenario            = "scenario"
)

var reserved = map[string]bool{
	KeyPersona:             true,
	KeyOneShot:             true,
	KeyEndPrompt:           true,
	KeyContext:             true,
	KeyHistory:             true,
	KeyInput:               true,
	KeyConversationHistory: true,
	KeyScenario:            true,
}

// Catalog is the immutable set of templates for one script.
type Catalog struct {
	Collection string
	Extraction string
	Adaptation string
	Main       string
	Second     string
	// Reflect and Dimensions are empty under the simple profile.
	Reflect    string
	Dimensions map[string]string

	OneShot    string
	EndPrompt  string
	AnswerKeys []string
	Personas   []config.Persona
}

// Build assembles every template the profile needs from script.
func Build(script *config.Script, profile config.Profile) (*Catalog, error) {
	const op = "build catalog"

	if script == nil {
		return nil, types.ConfigurationError(op, "script is nil", nil)
	}
	if len(script.Collection.Questions) == 0 {
		return nil, types.ConfigurationError(op, "collection.questions is empty", nil)
	}
	if len(script.Summaries.Questions) == 0 {
		return nil, types.ConfigurationError(op, "summaries.questions is empty", nil)
	}
	if len(script.Summaries.Personas) == 0 {
		return nil, types.ConfigurationError(op, "summaries.personas is empty", nil)
	}

	keys := make([]string, 0, len(script.Summaries.Questions))
	seen := make(map[string]bool)
	for _, q := range script.Summaries.Questions {
		switch {
		case !identRe.MatchString(q.Key):
			return nil, types.ConfigurationError(op, fmt.Sprintf("question key %q is not a valid identifier", q.Key), nil)
		case reserved[q.Key]:
			return nil, types.ConfigurationError(op, fmt.Sprintf("question key %q is reserved", q.Key), nil)
		case seen[q.Key]:
			return nil, types.ConfigurationError(op, fmt.Sprintf("question key %q is duplicated", q.Key), nil)
		}
		seen[q.Key] = true
		keys = append(keys, q.Key)
	}

	c := &Catalog{
		Collection: collectionTemplate(script.Collection),
		Extraction: extractionTemplate(script.Summaries.Questions),
		Adaptation: AdaptationTemplate,
		Main:       synthesisTemplate(script.Summaries.Questions, mainTail),
		Second:     synthesisTemplate(script.Summaries.Questions, secondTail),
		OneShot:    fmt.Sprintf(oneShotFormat, script.Example.Conversation, strings.TrimSpace(script.Example.Scenario)),
		EndPrompt:  script.Summaries.ExtractionTask,
		AnswerKeys: keys,
		Personas:   append([]config.Persona(nil), script.Summaries.Personas...),
	}

	switch profile {
	case config.ProfileSimple:
	case config.ProfileFull:
		if !script.HasReflection() {
			return nil, types.ConfigurationError(op, "full profile needs [reflect] and [abcd] sections", nil)
		}
		c.Reflect = reflectTemplate(script.Reflect)
		c.Dimensions = make(map[string]string, len(config.DimensionKeys))
		for _, key := range config.DimensionKeys {
			dim, _ := script.ABCD.Dimension(key)
			if len(dim.Followups) == 0 {
				return nil, types.ConfigurationError(op, fmt.Sprintf("abcd.%s.followups is empty", key), nil)
			}
			c.Dimensions[key] = dimensionTemplate(script.ABCD, dim)
		}
	default:
		return nil, types.ConfigurationError(op, fmt.Sprintf("unknown profile %q", profile), nil)
	}

	if err := c.check(); err != nil {
		return nil, types.ConfigurationError(op, "template self-check failed", err)
	}
	return c, nil
}

// check verifies every template only references the placeholders the core supplies.
func (c *Catalog) check() error {
	answers := make([]string, 0, len(c.AnswerKeys)+4)
	answers = append(answers, c.AnswerKeys...)

	turn := []string{KeyHistory, KeyInput}
	expect := map[string][]string{
		"collection": turn,
		"extraction": {KeyConversationHistory},
		"adaptation": {KeyScenario, KeyInput},
		"main":       append(append([]string(nil), answers...), KeyPersona, KeyOneShot, KeyEndPrompt),
		"second":     append(append([]string(nil), answers...), KeyPersona, KeyOneShot, KeyEndPrompt, KeyContext),
	}
	templates := map[string]string{
		"collection": c.Collection,
		"extraction": c.Extraction,
		"adaptation": c.Adaptation,
		"main":       c.Main,
		"second":     c.Second,
	}
	if c.Reflect != "" {
		expect["reflect"] = turn
		templates["reflect"] = c.Reflect
	}
	for key, tmpl := range c.Dimensions {
		expect["abcd."+key] = turn
		templates["abcd."+key] = tmpl
	}

	for name, tmpl := range templates {
		got, err := Placeholders(tmpl)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		allowed := make(map[string]bool)
		for _, k := range expect[name] {
			allowed[k] = true
		}
		for _, k := range got {
			if !allowed[k] {
				return fmt.Errorf("%s: unexpected placeholder %q", name, k)
			}
		}
	}
	return nil
}

// escape doubles braces so script text can never introduce a placeholder.
var escape = strings.NewReplacer("{", "{{", "}", "}}").Replace

func numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escape(item))
	}
	return b.String()
}

func answerCount(n int) string {
	if n == 1 {
		return oneAnswer
	}
	return fmt.Sprintf(manyAnswers, n)
}

func collectionTemplate(s config.CollectionSection) string {
	var b strings.Builder
	b.WriteString(escape(s.Persona))
	b.WriteString("\n\n")
	b.WriteString(collectionGoal)
	b.WriteString(numbered(s.Questions))
	b.WriteString(collectionRules)
	b.WriteString(escape(s.LanguageType))
	b.WriteString(" ")
	b.WriteString(escape(s.TopicRestriction))
	b.WriteString(answerCount(len(s.Questions)))
	b.WriteString(neverRestart)
	fmt.Fprintf(&b, endExactly, escape(s.Completion.Phrase))
	b.WriteString(conversationSuffix)
	return b.String()
}

func dimensionTemplate(a *config.ABCDSection, dim config.Dimension) string {
	var b strings.Builder
	b.WriteString(escape(a.Persona))
	b.WriteString("\n\n")
	b.WriteString(collectionGoal)
	b.WriteString(numbered(dim.Followups))
	b.WriteString(dimensionRulesHead)
	b.WriteString(escape(a.LanguageType))
	b.WriteString(" ")
	b.WriteString(dimensionRulesTail)
	b.WriteString(escape(a.TopicRestriction))
	b.WriteString(answerCount(len(dim.Followups)))
	fmt.Fprintf(&b, endWordOnly, escape(a.Completion.Phrase))
	b.WriteString(conversationSuffix)
	return b.String()
}

func reflectTemplate(r *config.ReflectSection) string {
	var b strings.Builder
	b.WriteString(escape(r.Persona))
	b.WriteString("\n\n")
	b.WriteString(reflectGoal)
	fmt.Fprintf(&b, "< %s >\n", escape(r.Instruction))
	b.WriteString(reflectRulesHead)
	b.WriteString(escape(r.LanguageType))
	b.WriteString(" ")
	b.WriteString(reflectRulesTail)
	b.WriteString(escape(r.TopicRestriction))
	b.WriteString(reflectDone)
	fmt.Fprintf(&b, endExactly, escape(r.Completion.Phrase))
	b.WriteString(conversationSuffix)
	return b.String()
}

// backtickList renders keys as "`a`, `b`, y `c`".
func backtickList(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "`" + k + "`"
	}
	if len(quoted) == 1 {
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", y " + quoted[len(quoted)-1]
}

func extractionTemplate(questions []config.Question) string {
	keys := make([]string, len(questions))
	for i, q := range questions {
		keys[i] = q.Key
	}

	var b strings.Builder
	b.WriteString(extractionHead)
	fmt.Fprintf(&b, extractionKeys, backtickList(keys))
	b.WriteString(extractionQuestions)
	for i, q := range questions {
		fmt.Fprintf(&b, "%d: %s\n", i+1, escape(q.Text))
	}
	b.WriteString(extractionTail)
	return b.String()
}

func synthesisTemplate(questions []config.Question, tail string) string {
	var b strings.Builder
	b.WriteString(synthesisHead)
	for _, q := range questions {
		fmt.Fprintf(&b, synthesisPair, escape(q.Text), q.Key)
	}
	b.WriteString(tail)
	return b.String()
}
