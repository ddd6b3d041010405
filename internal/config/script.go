package config

import (
	"fmt"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Profile selects which optional stages a deployment runs.
type Profile string

const (
	// ProfileSimple runs consent, collection, selection and refinement.
	ProfileSimple Profile = "simple"
	// ProfileFull adds reflection, dimension rating and the second narrative.
	ProfileFull Profile = "full"
)

// DimensionKeys is the fixed, ordered set of rating dimensions.
var DimensionKeys = []string{"atencion", "bondad", "claridad", "direccion"}

// Default completion settings for each stage.
const (
	DefaultMarker = "Gracias!"

	DefaultCollectionPhrase = "Gracias! A continuación te voy a presentar 3 narrativas que pienso que describen tu situación, " +
		"elige la narrativa que mejor describa tu experiencia. Ya que la hayas elegido, la podemos refinar."
	DefaultCollectionOutro = " A continuación te voy a presentar 3 narrativas que pienso que describen tu situación, " +
		"elige la narrativa que mejor describa tu experiencia. Ya que la hayas elegido, la podemos refinar."

	DefaultReflectPhrase = "Gracias! Gracias por compartir tu situación conmigo. Esta reflexión es un regalo para tu práctica. 🌱"

	DefaultDimensionPhrase = "Gracias!"
	DefaultDimensionOutro  = " Gracias por tu apertura. Espero que esta indagación interna te ayude en situaciones futuras."

	DefaultExtractionTask = "Crea un escenario basado en estas respuestas."
)

// Script is the conversation script: every text the bot speaks or sends to the model.
type Script struct {
	Consent    ConsentSection    `mapstructure:"consent"`
	Collection CollectionSection `mapstructure:"collection"`
	Summaries  SummariesSection  `mapstructure:"summaries"`
	Example    ExampleSection    `mapstructure:"example"`
	Reflect    *ReflectSection   `mapstructure:"reflect" validate:"omitempty"`
	ABCD       *ABCDSection      `mapstructure:"abcd" validate:"omitempty"`
	Closing    ClosingSection    `mapstructure:"closing"`
}

type ConsentSection struct {
	IntroAndConsent string `mapstructure:"intro_and_consent" validate:"required"`
	InformedConsent string `mapstructure:"informed_consent"`
}

// Completion configures how a stage signals it is finished.
// Marker is what the detector looks for, Phrase is what the model is told to write,
// Outro is appended to the reply shown to the user.
type Completion struct {
	Marker string `mapstructure:"marker"`
	Phrase string `mapstructure:"phrase"`
	Outro  string `mapstructure:"outro"`
}

type CollectionSection struct {
	Intro            string     `mapstructure:"intro" validate:"required"`
	Persona          string     `mapstructure:"persona" validate:"required"`
	Questions        []string   `mapstructure:"questions" validate:"required,min=1,dive,required"`
	LanguageType     string     `mapstructure:"language_type"`
	TopicRestriction string     `mapstructure:"topic_restriction"`
	Completion       Completion `mapstructure:"completion"`
}

// Question pairs an answer key with the question text used for extraction and synthesis.
type Question struct {
	Key  string `mapstructure:"key" validate:"required"`
	Text string `mapstructure:"text" validate:"required"`
}

// Persona is one narrator voice. Name is only used for display.
type Persona struct {
	Name string `mapstructure:"name"`
	Text string `mapstructure:"text" validate:"required"`
}

type SummariesSection struct {
	Questions      []Question `mapstructure:"questions" validate:"required,min=1,dive"`
	Personas       []Persona  `mapstructure:"personas" validate:"required,min=1,dive"`
	ExtractionTask string     `mapstructure:"extraction_task"`
}

type ExampleSection struct {
	Conversation string `mapstructure:"conversation" validate:"required"`
	Scenario     string `mapstructure:"scenario" validate:"required"`
}

type ReflectSection struct {
	Intro            string     `mapstructure:"intro" validate:"required"`
	Persona          string     `mapstructure:"persona" validate:"required"`
	Instruction      string     `mapstructure:"instruction" validate:"required"`
	LanguageType     string     `mapstructure:"language_type"`
	TopicRestriction string     `mapstructure:"topic_restriction"`
	Completion       Completion `mapstructure:"completion"`
}

// Dimension describes one of the four rating dimensions and its follow-up questions.
type Dimension struct {
	Title       string   `mapstructure:"title" validate:"required"`
	Description string   `mapstructure:"description" validate:"required"`
	Intro       string   `mapstructure:"intro" validate:"required"`
	Followups   []string `mapstructure:"followups" validate:"required,min=1,dive,required"`
}

type ABCDSection struct {
	Persona          string            `mapstructure:"persona" validate:"required"`
	LanguageType     string            `mapstructure:"language_type"`
	TopicRestriction string            `mapstructure:"topic_restriction"`
	UI               map[string]string `mapstructure:"ui"`
	Completion       Completion        `mapstructure:"completion"`
	Atencion         Dimension         `mapstructure:"atencion"`
	Bondad           Dimension         `mapstructure:"bondad"`
	Claridad         Dimension         `mapstructure:"claridad"`
	Direccion        Dimension         `mapstructure:"direccion"`
}

// Dimension returns the descriptor for key.
func (a *ABCDSection) Dimension(key string) (Dimension, bool) {
	switch key {
	case "atencion":
		return a.Atencion, true
	case "bondad":
		return a.Bondad, true
	case "claridad":
		return a.Claridad, true
	case "direccion":
		return a.Direccion, true
	}
	return Dimension{}, false
}

type ClosingSection struct {
	Title     string `mapstructure:"title"`
	Message   string `mapstructure:"message"`
	SurveyURL string `mapstructure:"survey_url"`
}

// HasReflection reports whether the script carries the reflect and rating stages.
func (s *Script) HasReflection() bool {
	return s.Reflect != nil && s.ABCD != nil
}

var scriptValidate = validator.New()

// LoadScript reads and validates the conversation script at path.
func LoadScript(path string) (*Script, error) {
	return LoadScriptFs(afero.NewOsFs(), path)
}

// LoadScriptFs reads and validates the conversation script at path on fs.
// The format follows the file extension (toml, yaml, json).
func LoadScriptFs(fs afero.Fs, path string) (*Script, error) {
	const op = "load script"

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, types.ConfigurationError(op, fmt.Sprintf("read %s", path), err)
	}

	if err := ValidateScriptSchema(v.AllSettings()); err != nil {
		return nil, types.ConfigurationError(op, "schema validation failed", err)
	}

	var script Script
	if err := v.Unmarshal(&script); err != nil {
		return nil, types.ConfigurationError(op, "decode script", err)
	}

	trimScript(&script)
	applyScriptDefaults(&script)

	if err := scriptValidate.Struct(script); err != nil {
		return nil, types.ConfigurationError(op, "required fields missing", err)
	}
	if err := checkQuestionKeys(script.Summaries.Questions); err != nil {
		return nil, types.ConfigurationError(op, "invalid summaries.questions", err)
	}

	return &script, nil
}

func applyScriptDefaults(s *Script) {
	setDefaults(&s.Collection.Completion, DefaultMarker, DefaultCollectionPhrase, DefaultCollectionOutro)
	if s.Reflect != nil {
		setDefaults(&s.Reflect.Completion, DefaultMarker, DefaultReflectPhrase, "")
	}
	if s.ABCD != nil {
		setDefaults(&s.ABCD.Completion, DefaultMarker, DefaultDimensionPhrase, DefaultDimensionOutro)
	}
	if s.Summaries.ExtractionTask == "" {
		s.Summaries.ExtractionTask = DefaultExtractionTask
	}
}

func setDefaults(c *Completion, marker, phrase, outro string) {
	if c.Marker == "" {
		c.Marker = marker
	}
	if c.Phrase == "" {
		c.Phrase = phrase
	}
	if c.Outro == "" {
		c.Outro = outro
	}
}

// trimScript strips surrounding whitespace from multi-line TOML strings.
func trimScript(s *Script) {
	s.Consent.IntroAndConsent = strings.TrimSpace(s.Consent.IntroAndConsent)
	s.Consent.InformedConsent = strings.TrimSpace(s.Consent.InformedConsent)
	s.Collection.Intro = strings.TrimSpace(s.Collection.Intro)
	s.Example.Scenario = strings.TrimSpace(s.Example.Scenario)
	for i := range s.Summaries.Personas {
		s.Summaries.Personas[i].Text = strings.TrimSpace(s.Summaries.Personas[i].Text)
	}
	if s.Reflect != nil {
		s.Reflect.Intro = strings.TrimSpace(s.Reflect.Intro)
	}
	if s.ABCD != nil {
		for _, d := range []*Dimension{&s.ABCD.Atencion, &s.ABCD.Bondad, &s.ABCD.Claridad, &s.ABCD.Direccion} {
			d.Intro = strings.TrimSpace(d.Intro)
		}
	}
}

func checkQuestionKeys(questions []Question) error {
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if seen[q.Key] {
			return fmt.Errorf("duplicate key %q", q.Key)
		}
		seen[q.Key] = true
	}
	return nil
}
