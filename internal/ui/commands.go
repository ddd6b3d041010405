package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/stage"
	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/types"
)

// Action is one parsed line of user input. Exactly one of Turn, Choice, Help or Quit is set.
type Action struct {
	Turn   string
	Choice *stage.Choice
	Help   bool
	Quit   bool
}

// Slash commands understood by the terminal hosts.
const (
	CmdAccept    = "/aceptar"
	CmdChoose    = "/elegir"
	CmdEdit      = "/editar"
	CmdUse       = "/usar"
	CmdSave      = "/guardar"
	CmdRate      = "/calificar"
	CmdDimension = "/dimension"
	CmdHelp      = "/ayuda"
	CmdQuit      = "/salir"
)

// HelpText lists every command.
const HelpText = `Comandos disponibles:
  /aceptar              aceptar el consentimiento y comenzar
  /elegir N             elegir la narrativa número N
  /editar TEXTO         reemplazar la narrativa por tu propia versión
  /usar                 aceptar la versión adaptada sugerida
  /guardar              guardar la narrativa actual y continuar
  /calificar A B C D    calificar atención, bondad, claridad y dirección (1 a 5)
  /dimension N|CLAVE    elegir la dimensión a explorar cuando hay empate
  /ayuda                mostrar esta ayuda
  /salir                terminar

Cualquier otro texto se envía como mensaje.`

// Parse turns a line of input into an Action. d is the current display, used to
// resolve numbered tie options.
func Parse(input string, d stage.Display) (Action, error) {
	const op = "parse command"

	line := strings.TrimSpace(input)
	if line == "" {
		return Action{}, types.InvalidInputError(op, "escribe un mensaje o /ayuda")
	}
	if !strings.HasPrefix(line, "/") {
		return Action{Turn: line}, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	choice := func(c stage.Choice) (Action, error) { return Action{Choice: &c}, nil }

	switch strings.ToLower(name) {
	case CmdHelp:
		return Action{Help: true}, nil
	case CmdQuit:
		return Action{Quit: true}, nil
	case CmdAccept:
		return choice(stage.Choice{Kind: stage.ChoiceConsent})
	case CmdUse:
		return choice(stage.Choice{Kind: stage.ChoiceAcceptSuggestion})
	case CmdSave:
		return choice(stage.Choice{Kind: stage.ChoiceSave})

	case CmdChoose:
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return Action{}, types.InvalidInputError(op, "uso: /elegir N (N desde 1)")
		}
		return choice(stage.Choice{Kind: stage.ChoiceSelect, Index: n - 1})

	case CmdEdit:
		if rest == "" {
			return Action{}, types.InvalidInputError(op, "uso: /editar TEXTO")
		}
		return choice(stage.Choice{Kind: stage.ChoiceEdit, Text: rest})

	case CmdRate:
		fields := strings.Fields(rest)
		if len(fields) != len(config.DimensionKeys) {
			return Action{}, types.InvalidInputError(op,
				fmt.Sprintf("uso: /calificar seguido de %d números del 1 al 5", len(config.DimensionKeys)))
		}
		ratings := make(map[string]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return Action{}, types.InvalidInputError(op, fmt.Sprintf("%q no es un número", f))
			}
			ratings[config.DimensionKeys[i]] = v
		}
		return choice(stage.Choice{Kind: stage.ChoiceRatings, Ratings: ratings})

	case CmdDimension:
		if rest == "" {
			return Action{}, types.InvalidInputError(op, "uso: /dimension N o /dimension CLAVE")
		}
		key := strings.ToLower(rest)
		if n, err := strconv.Atoi(rest); err == nil {
			if n < 1 || n > len(d.TieOptions) {
				return Action{}, types.InvalidInputError(op, fmt.Sprintf("elige un número entre 1 y %d", len(d.TieOptions)))
			}
			key = d.TieOptions[n-1].Key
		}
		return choice(stage.Choice{Kind: stage.ChoiceDimension, Key: key})
	}
	return Action{}, types.InvalidInputError(op, fmt.Sprintf("comando desconocido %s, usa /ayuda", name))
}
