package prompts

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Placeholders lists the distinct {name} placeholders of tmpl in order of
// first appearance. Doubled braces are literal.
func Placeholders(tmpl string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed '{' at offset %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			if !identRe.MatchString(name) {
				return nil, fmt.Errorf("invalid placeholder %q at offset %d", name, i)
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("unmatched '}' at offset %d", i)
		}
	}
	return names, nil
}

// Render substitutes every placeholder of tmpl from vars. A placeholder
// without a value is a render error naming all missing keys.
func Render(ctx context.Context, tmpl string, vars map[string]any) (string, error) {
	const op = "render"

	names, err := Placeholders(tmpl)
	if err != nil {
		return "", types.RenderError(op, "malformed template", err)
	}

	var missing []string
	for _, name := range names {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", types.RenderError(op, "missing values for: "+strings.Join(missing, ", "), nil)
	}

	msgs, err := prompt.FromMessages(schema.FString, schema.UserMessage(tmpl)).Format(ctx, vars)
	if err != nil {
		return "", types.RenderError(op, "format template", err)
	}
	if len(msgs) != 1 {
		return "", types.RenderError(op, fmt.Sprintf("expected one message, got %d", len(msgs)), nil)
	}
	return msgs[0].Content, nil
}
