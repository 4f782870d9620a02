package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/models"
)

// NotifyStore lists the matches invitations go to.
type NotifyStore interface {
	MatchesForNotification(ctx context.Context, minScore float64) ([]models.MatchView, error)
}

// Inviter sends one invitation.
type Inviter interface {
	Invite(ctx context.Context, view models.MatchView) error
}

// Notify invites every candidate of the latest run scoring at least minScore.
// A failed delivery is recorded and the next recipient continues.
func Notify(ctx context.Context, st NotifyStore, inviter Inviter, minScore float64, confirm ConfirmFunc, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	report := NewReport(StageNotify)

	matches, err := st.MatchesForNotification(ctx, minScore)
	if err != nil {
		return report, err
	}
	if len(matches) == 0 {
		logger.Info("nothing to notify", zap.Float64("threshold", minScore))
		return report, nil
	}

	if confirm != nil {
		ok, err := confirm(ctx, matches)
		if err != nil {
			return report, err
		}
		if !ok {
			for _, m := range matches {
				report.Skip(matchID(m), "not confirmed")
			}
			return report, nil
		}
	}

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := inviter.Invite(ctx, m); err != nil {
			logger.Warn("invitation failed", zap.String("candidate_id", m.CandidateID), zap.Int64("job_id", m.JobID), zap.Error(err))
			report.Fail(matchID(m), err)
			continue
		}
		report.Ok(matchID(m), m.Email)
	}

	return report, nil
}

func matchID(m models.MatchView) string {
	return fmt.Sprintf("%d/%s", m.JobID, m.CandidateID)
}
