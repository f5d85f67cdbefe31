package cli

import (
	"errors"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("operación cancelada")

// Prompter asks the user for a value.
type Prompter interface {
	Input(message, def string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, def string) (string, error) {
	var out string
	prompt := &survey.Input{
		Message: message,
		Default: def,
		Suggest: suggestPaths,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", ErrAborted
		}
		return "", err
	}
	return out, nil
}

// suggestPaths completes a partially typed path.
func suggestPaths(toComplete string) []string {
	matches, _ := filepath.Glob(toComplete + "*")
	return matches
}
