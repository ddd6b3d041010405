package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/ui"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/prompts"
)

var (
	validateProfile     string
	validateShowPrompts bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [script]",
	Short: "Check a conversation script and summarize its prompts",
	Long: `Load a conversation script, validate it against the schema and the flow
profile, and build every prompt template once. Exits non-zero on any problem.

Examples:
  narrativa validate
  narrativa validate config/guion.toml --profile simple
  narrativa validate --show-prompts`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		path := cfg.Script
		if len(args) == 1 {
			path = args[0]
		}
		profile := config.Profile(cfg.Flow.Profile)
		if validateProfile != "" {
			profile = config.Profile(validateProfile)
		}
		return runValidate(cmd.OutOrStdout(), path, profile, validateShowPrompts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateProfile, "profile", "", "flow profile to check: simple or full (default flow.profile)")
	validateCmd.Flags().BoolVar(&validateShowPrompts, "show-prompts", false, "print every built template")
}

func runValidate(w io.Writer, path string, profile config.Profile, showPrompts bool) error {
	script, err := config.LoadScript(path)
	if err != nil {
		return err
	}
	catalog, err := prompts.Build(script, profile)
	if err != nil {
		return err
	}

	ui.RenderPageHeader(w, "Guion válido", fmt.Sprintf("%s · perfil %s", path, profile))

	var b strings.Builder
	fmt.Fprintf(&b, "Preguntas de recolección: %d\n", len(script.Collection.Questions))
	fmt.Fprintf(&b, "Claves de respuesta:      %s\n", strings.Join(catalog.AnswerKeys, ", "))
	fmt.Fprintf(&b, "Voces:                    %d\n", len(catalog.Personas))
	for i, p := range catalog.Personas {
		name := p.Name
		if name == "" {
			name = "(sin nombre)"
		}
		fmt.Fprintf(&b, "  %d. %s\n", i+1, name)
	}
	if profile == config.ProfileFull {
		b.WriteString("Dimensiones:\n")
		for _, key := range config.DimensionKeys {
			dim, _ := script.ABCD.Dimension(key)
			fmt.Fprintf(&b, "  %-10s %s (%d preguntas)\n", key, dim.Title, len(dim.Followups))
		}
	}
	fmt.Fprintln(w, ui.RenderPanel("Resumen", strings.TrimRight(b.String(), "\n"), ui.ColorSuccess))

	if !showPrompts {
		return nil
	}
	templates := []struct{ name, body string }{
		{"collection", catalog.Collection},
		{"extraction", catalog.Extraction},
		{"main", catalog.Main},
		{"second", catalog.Second},
		{"adaptation", catalog.Adaptation},
	}
	if catalog.Reflect != "" {
		templates = append(templates, struct{ name, body string }{"reflect", catalog.Reflect})
	}
	for _, key := range config.DimensionKeys {
		if body, ok := catalog.Dimensions[key]; ok {
			templates = append(templates, struct{ name, body string }{"abcd." + key, body})
		}
	}
	for _, t := range templates {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.StyleTitle.Render("── "+t.name+" ──"))
		fmt.Fprintln(w, t.body)
	}
	return nil
}
