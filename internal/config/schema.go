package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// scriptSchema closes every section so unknown keys are rejected,
// and pins the rating dimensions to exactly the four known keys.
const scriptSchema = `
#Key: string & =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Completion: {
	marker?: string
	phrase?: string
	outro?:  string
}

#Consent: {
	intro_and_consent: string & !=""
	informed_consent?: string
}

#Collection: {
	intro:   string & !=""
	persona: string & !=""
	questions: [string & !="", ...string & !=""]
	language_type?:     string
	topic_restriction?: string
	completion?:        #Completion
}

#Question: {
	key:  #Key
	text: string & !=""
}

#Persona: {
	name?: string
	text:  string & !=""
}

#Summaries: {
	questions: [#Question, ...#Question]
	personas: [#Persona, ...#Persona]
	extraction_task?: string
}

#Example: {
	conversation: string & !=""
	scenario:     string & !=""
}

#Reflect: {
	intro:       string & !=""
	persona:     string & !=""
	instruction: string & !=""
	language_type?:     string
	topic_restriction?: string
	completion?:        #Completion
}

#Dimension: {
	title:       string & !=""
	description: string & !=""
	intro:       string & !=""
	followups: [string & !="", ...string & !=""]
}

#ABCD: {
	persona: string & !=""
	language_type?:     string
	topic_restriction?: string
	ui?: [string]: string
	completion?: #Completion
	atencion:    #Dimension
	bondad:      #Dimension
	claridad:    #Dimension
	direccion:   #Dimension
}

#Closing: {
	title?:      string
	message?:    string
	survey_url?: string
}

consent:    #Consent
collection: #Collection
summaries:  #Summaries
example:    #Example
reflect?:   #Reflect
abcd?:      #ABCD
closing?:   #Closing
`

var compiledSchema = func() cue.Value {
	ctx := cuecontext.New()
	return ctx.CompileString("close({" + scriptSchema + "})")
}()

// ValidateScriptSchema checks raw script settings against the closed CUE schema.
func ValidateScriptSchema(settings map[string]any) error {
	if err := compiledSchema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	value := compiledSchema.Context().Encode(settings)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := compiledSchema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
