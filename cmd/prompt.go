package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/pipeline"
)

const (
	PromptYes  = "Yes"
	PromptNo   = "No"
	PromptList = "List invitations"
)

// confirmFor asks before sending real email unless --yes is given or
// invitations are only logged.
func confirmFor(cmd *cobra.Command) pipeline.ConfirmFunc {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}
	if viper.GetBool("notify.dry-run") {
		return nil
	}
	return confirmInvitations
}

func confirmInvitations(_ context.Context, matches []models.MatchView) (bool, error) {
	prompt := promptui.Select{
		Label: fmt.Sprintf("Send %d invitations?", len(matches)),
		Items: []string{PromptYes, PromptNo, PromptList},
	}

	for {
		_, answer, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
				return false, nil
			}
			return false, fmt.Errorf("prompt: %w", err)
		}

		switch answer {
		case PromptYes:
			return true, nil
		case PromptNo:
			return false, nil
		case PromptList:
			for _, m := range matches {
				fmt.Printf("%-40s %-30s %-30s %.2f\n", m.JobTitle, m.Name, m.Email, m.Score)
			}
		}
	}
}
