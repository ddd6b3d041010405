package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled regexes for JSON repair. They cover the usual model slips
// for small flat objects and are not a general JSON5 parser.
var (
	// Fix trailing commas before closing brace/bracket
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)

	// Fix single quotes for object keys: {'key': -> {"key":
	singleQuoteKeyRegex = regexp.MustCompile(`([{,]\s*)'(\w+)'(\s*:)`)

	// Fix single quotes for string values: : 'value' -> : "value"
	singleQuoteValueRegex = regexp.MustCompile(`(:\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]])`)

	// Fix missing comma between a string value and the next key on a new line
	missingCommaBeforeKeyRegex = regexp.MustCompile(`(")\s*\n\s*("[\w][^"]*"\s*:)`)

	// Markdown fence anywhere in the reply
	fenceRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
)

// ExtractAndParseJSON extracts the first JSON value from a model reply and unmarshals it.
// Prose before or after the value, markdown fences and common syntax slips are tolerated.
func ExtractAndParseJSON[T any](response string) (T, error) {
	var result T

	cleaned := cleanLLMResponse(response)
	if cleaned == "" {
		return result, fmt.Errorf("no JSON found in response")
	}

	idx := strings.IndexAny(cleaned, "{[")
	if idx == -1 {
		// A JSON string that itself holds JSON.
		var asString string
		if err := json.Unmarshal([]byte(cleaned), &asString); err == nil && asString != cleaned {
			return ExtractAndParseJSON[T](asString)
		}
		return result, fmt.Errorf("no JSON start ({ or [) found")
	}

	// Decoder reads one value and ignores trailing text.
	jsonPart := cleaned[idx:]
	err := json.NewDecoder(strings.NewReader(jsonPart)).Decode(&result)
	if err == nil {
		return result, nil
	}

	repaired := repairJSON(jsonPart)
	if repaired != jsonPart {
		var again T
		if err2 := json.NewDecoder(strings.NewReader(repaired)).Decode(&again); err2 == nil {
			return again, nil
		}
	}
	return result, fmt.Errorf("parse JSON: %w", err)
}

// repairJSON fixes common JSON syntax errors from LLMs.
func repairJSON(input string) string {
	result := sanitizeStrings(input)
	result = missingCommaBeforeKeyRegex.ReplaceAllString(result, `$1, $2`)
	result = trailingCommaRegex.ReplaceAllString(result, `$1`)
	result = singleQuoteKeyRegex.ReplaceAllString(result, `$1"$2"$3`)
	result = singleQuoteValueRegex.ReplaceAllStringFunc(result, func(match string) string {
		parts := singleQuoteValueRegex.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		value := strings.ReplaceAll(parts[2], `\'`, `'`)
		value = strings.ReplaceAll(value, `"`, `\"`)
		return parts[1] + `"` + value + `"` + parts[3]
	})
	return fixTruncatedJSON(result)
}

// sanitizeStrings escapes literal control characters inside JSON strings and
// doubles backslashes that do not start a valid escape sequence.
func sanitizeStrings(input string) string {
	var result strings.Builder
	result.Grow(len(input))

	inString := false
	for i := 0; i < len(input); i++ {
		c := input[i]

		if c == '"' {
			inString = !inString
			result.WriteByte(c)
			continue
		}
		if !inString {
			result.WriteByte(c)
			continue
		}

		switch {
		case c == '\\':
			if i+1 < len(input) && strings.IndexByte(`"\/bfnrtu`, input[i+1]) >= 0 {
				result.WriteByte(c)
				result.WriteByte(input[i+1])
				i++
			} else {
				result.WriteString(`\\`)
			}
		case c == '\n':
			result.WriteString(`\n`)
		case c == '\r':
			result.WriteString(`\r`)
		case c == '\t':
			result.WriteString(`\t`)
		case c < 0x20:
			fmt.Fprintf(&result, `\u%04x`, c)
		default:
			result.WriteByte(c)
		}
	}
	return result.String()
}

// fixTruncatedJSON closes a reply that was cut off mid-string or mid-object.
func fixTruncatedJSON(input string) string {
	quoteCount := 0
	escaped := false
	for _, c := range input {
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			quoteCount++
		}
	}
	if quoteCount%2 != 0 {
		input += `"`
	}

	openBraces := strings.Count(input, "{") - strings.Count(input, "}")
	openBrackets := strings.Count(input, "[") - strings.Count(input, "]")
	for i := 0; i < openBrackets; i++ {
		input += "]"
	}
	for i := 0; i < openBraces; i++ {
		input += "}"
	}
	return input
}

// cleanLLMResponse strips markdown code fences around the JSON.
func cleanLLMResponse(response string) string {
	response = strings.TrimSpace(response)
	if m := fenceRegex.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
