package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/metrics"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// VoteService applies toggle votes.
type VoteService struct {
	repo   SnippetStore
	logger *slog.Logger
}

// NewVoteService creates a VoteService. repo must support WithinTx; every
// cast runs in its own transaction.
func NewVoteService(repo SnippetStore, logger *slog.Logger) *VoteService {
	return &VoteService{repo: repo, logger: logger}
}

// voteStep is what one cast does to the stored row.
type voteStep struct {
	action model.VoteAction
	value  int // caller's vote afterwards, 0 when retracted
	delta  int
}

// decideVote implements the toggle rules:
//
//	no vote        → insert dir
//	same direction → delete (retract)
//	opposite       → update in place
func decideVote(existing *model.Vote, dir model.Direction) voteStep {
	v := dir.Value()
	switch {
	case existing == nil:
		return voteStep{action: model.VoteCreated, value: v, delta: v}
	case existing.Value == v:
		return voteStep{action: model.VoteRetracted, value: 0, delta: -v}
	default:
		return voteStep{action: model.VoteSwitched, value: v, delta: v - existing.Value}
	}
}

// CastVote toggles the caller's vote on a snippet.
//
// TRANSACTION:
// The visibility check, the read of the existing vote and the write all run
// in one transaction, with the snippet row share-locked on Postgres. A
// snippet deleted or made private after the check cannot receive the vote.
//
// When two casts for the same pair race, the loser's insert hits the unique
// index; the whole transaction is then run once more and sees the winner's
// row. A second loss is reported as a Conflict.
func (s *VoteService) CastVote(ctx context.Context, caller model.Identity, snippetID string, dir model.Direction) (*model.VoteResult, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthorized("sign in to vote")
	}
	if dir != model.Up && dir != model.Down {
		return nil, apperror.ValidationFailed("direction", "direction must be up or down")
	}

	step, err := s.apply(ctx, caller, snippetID, dir)
	if errors.Is(err, repository.ErrUniqueViolation) {
		metrics.VoteRetries.Inc()
		s.logger.Debug("vote insert raced, retrying",
			slog.String("snippet_id", snippetID),
			slog.String("user_id", caller.UserID),
		)
		step, err = s.apply(ctx, caller, snippetID, dir)
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, apperror.Conflict("vote", snippetID)
		}
	}
	if errors.Is(err, repository.ErrForeignKeyViolation) {
		return nil, apperror.NotFound("snippet", snippetID)
	}
	if err != nil {
		return nil, fmt.Errorf("casting vote: %w", err)
	}

	score, err := s.repo.SnippetScore(ctx, snippetID)
	if err != nil {
		return nil, fmt.Errorf("reading score: %w", err)
	}

	metrics.Votes.WithLabelValues(string(step.action)).Inc()
	return &model.VoteResult{
		SnippetID: snippetID,
		Action:    step.action,
		Value:     step.value,
		Delta:     step.delta,
		Score:     score,
	}, nil
}

// apply runs one attempt of a cast in a transaction.
func (s *VoteService) apply(ctx context.Context, caller model.Identity, snippetID string, dir model.Direction) (voteStep, error) {
	var step voteStep
	userID := caller.UserID
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		snippet, err := s.repo.LockSnippet(ctx, snippetID)
		if err != nil {
			return err
		}
		if !canRead(caller, snippet) {
			return apperror.Forbidden("this snippet is private")
		}

		existing, err := s.repo.GetVote(ctx, userID, snippetID)
		if err != nil && !isNotFound(err) {
			return err
		}

		step = decideVote(existing, dir)
		switch step.action {
		case model.VoteCreated:
			return s.repo.InsertVote(ctx, &model.Vote{
				UserID:    userID,
				SnippetID: snippetID,
				Value:     step.value,
			})
		case model.VoteRetracted:
			return s.repo.DeleteVote(ctx, existing.ID)
		default:
			return s.repo.UpdateVoteValue(ctx, existing.ID, step.value)
		}
	})
	return step, err
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
