// Package app is the imperative shell: it wires the pure protocol
// core (board, commitments, claims, reconciliation) to the external
// collaborators (prover, ledger, relay channel) and owns the
// retry/backoff policy for their failures.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"zkbattleship/internal/claim"
	"zkbattleship/internal/codec"
	"zkbattleship/internal/commit"
	"zkbattleship/internal/game"
	"zkbattleship/internal/ledger"
	"zkbattleship/internal/prover"
	"zkbattleship/internal/reconcile"
	"zkbattleship/internal/session"
	"zkbattleship/internal/verify"
)

// Channel is the slice of the relay client the service drives.
type Channel interface {
	Events() <-chan session.Inbound
	Snapshots() <-chan session.Snapshot
	SubmitBoard(commitmentHex string, proof []byte) error
}

// Service drives one player's session end to end.
type Service struct {
	Log    zerolog.Logger
	Prover prover.Prover
	Ledger ledger.Ledger
	Rec    *reconcile.Reconciler

	board *game.Board
	salt  commit.Salt
	root  commit.Digest

	retryAttempts int
	retryBase     time.Duration
}

func New(localPlayer string, pr prover.Prover, lg ledger.Ledger, log zerolog.Logger) *Service {
	l := log.With().Str("component", "app").Logger()
	return &Service{
		Log:           l,
		Prover:        pr,
		Ledger:        lg,
		Rec:           reconcile.New(localPlayer, log),
		retryAttempts: 4,
		retryBase:     500 * time.Millisecond,
	}
}

// Secret exports the retained secret material for persistence between
// CLI invocations.
func (s *Service) Secret() (*codec.Secret, error) {
	if s.board == nil {
		return nil, errors.New("no board committed yet")
	}
	return &codec.Secret{
		Board:      *s.board,
		SaltHex:    s.salt.Hex(),
		Commitment: s.root.Hex(),
	}, nil
}

// Restore loads previously committed secret material.
func (s *Service) Restore(sec *codec.Secret) error {
	if err := sec.Board.Validate(); err != nil {
		return err
	}
	salt, err := commit.SaltFromHex(sec.SaltHex)
	if err != nil {
		return err
	}
	board := sec.Board
	root, err := commit.Board(&board, salt)
	if err != nil {
		return err
	}
	if root.Hex() != sec.Commitment {
		return errors.New("stored commitment does not match board and salt")
	}
	s.board, s.salt, s.root = &board, salt, root
	s.Rec.SetBoard(&board)
	return nil
}

// CommitBoard validates the board, derives salt and commitment,
// publishes the commitment on the ledger and retains the secret. The
// placing phase only advances once the ledger confirms.
func (s *Service) CommitBoard(ctx context.Context, sessionID string, b *game.Board) (commit.Digest, error) {
	if err := b.Validate(); err != nil {
		return commit.Digest{}, err
	}
	salt, err := commit.NewSalt()
	if err != nil {
		return commit.Digest{}, err
	}
	root, err := commit.Board(b, salt)
	if err != nil {
		return commit.Digest{}, err
	}
	player := s.Rec.Machine().LocalPlayer()
	err = s.withRetry(ctx, "publish commitment", func() error {
		_, err := s.Ledger.PublishCommitment(ctx, sessionID, player, root.Hex(), nil)
		return err
	})
	if err != nil {
		// Board and salt stay local and unchanged; retry is safe.
		return commit.Digest{}, err
	}
	s.board, s.salt, s.root = b, salt, root
	s.Rec.SetBoard(b)
	s.Rec.Machine().MarkBoardSubmitted()
	s.Log.Info().Str("commitment", root.Hex()).Msg("board committed")
	return root, nil
}

// FireShot submits the local player's shot. Turn possession is
// revoked optimistically; it is only granted again by confirmed
// events or snapshots.
func (s *Service) FireShot(ctx context.Context, at game.Coord) error {
	if err := s.Rec.ProposeShot(at); err != nil {
		return err
	}
	m := s.Rec.Machine()
	err := s.withRetry(ctx, "fire shot", func() error {
		_, err := s.Ledger.FireShot(ctx, m.SessionID(), m.LocalPlayer(), at)
		return err
	})
	if err != nil {
		s.Rec.ShotFailed()
		return err
	}
	return nil
}

// Forfeit concedes the session.
func (s *Service) Forfeit(ctx context.Context) error {
	m := s.Rec.Machine()
	err := s.withRetry(ctx, "forfeit", func() error {
		_, err := s.Ledger.Forfeit(ctx, m.SessionID(), m.LocalPlayer())
		return err
	})
	if err != nil {
		return err
	}
	m.Apply(session.GameOver{Winner: m.Opponent()})
	return nil
}

// RespondToShot computes the ground truth for an opponent shot,
// builds and proves the claim and submits the verified result.
func (s *Service) RespondToShot(ctx context.Context, at game.Coord) (*codec.ShotProofPayload, error) {
	if s.board == nil {
		return nil, errors.New("no board committed yet")
	}
	hit, err := verify.IsHit(s.board, at)
	if err != nil {
		return nil, err
	}
	in, err := claim.BuildShotClaim(s.board, at, hit, s.salt)
	if err != nil {
		return nil, err
	}
	var proof []byte
	err = s.withRetry(ctx, "prove shot", func() error {
		proof, err = s.Prover.Prove(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	m := s.Rec.Machine()
	err = s.withRetry(ctx, "submit shot result", func() error {
		_, err := s.Ledger.SubmitShotResult(ctx, m.SessionID(), m.LocalPlayer(), at, hit, proof)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &codec.ShotProofPayload{
		Proof:      proof,
		Commitment: s.root.Hex(),
		X:          at.X,
		Y:          at.Y,
		Hit:        hit,
	}, nil
}

// ProveGameEnd builds and proves the full-fleet-sunk claim over the
// shots recorded against the local board and settles it on the
// ledger.
func (s *Service) ProveGameEnd(ctx context.Context) (*codec.GameEndProofPayload, error) {
	if s.board == nil {
		return nil, errors.New("no board committed yet")
	}
	in, err := claim.BuildGameEndClaim(s.board, s.Rec.Incoming(), s.salt)
	if err != nil {
		return nil, err
	}
	var proof []byte
	err = s.withRetry(ctx, "prove game end", func() error {
		proof, err = s.Prover.Prove(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	m := s.Rec.Machine()
	err = s.withRetry(ctx, "verify game end", func() error {
		_, err := s.Ledger.VerifyGameEnd(ctx, m.SessionID(), m.LocalPlayer(), in.HistoryDigest.Hex(), proof)
		return err
	})
	if err != nil {
		return nil, err
	}
	// Verified sink settles the session: the opponent wins.
	m.Apply(session.GameOver{Winner: m.Opponent()})
	return &codec.GameEndProofPayload{
		Proof:         proof,
		Commitment:    s.root.Hex(),
		History:       in.History,
		HistoryDigest: in.HistoryDigest.Hex(),
	}, nil
}

// Run consumes the relay channel until it closes, the session ends,
// or ctx is canceled, executing reconciler effects as they surface.
func (s *Service) Run(ctx context.Context, ch Channel) error {
	events := ch.Events()
	snapshots := ch.Snapshots()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			s.Rec.ApplySnapshot(snap)
		case in, ok := <-events:
			if !ok {
				return nil
			}
			for _, eff := range s.Rec.ApplyEvent(in) {
				if err := s.execute(ctx, eff); err != nil {
					// Claim mismatches are hard failures; external
					// errors already exhausted their retries.
					return err
				}
			}
		}
		if s.Rec.Machine().Phase() == session.PhaseGameOver {
			s.Log.Info().Str("winner", s.Rec.Machine().Winner()).Msg("session over")
			return nil
		}
	}
}

func (s *Service) execute(ctx context.Context, eff reconcile.Effect) error {
	switch e := eff.(type) {
	case reconcile.RespondToShot:
		_, err := s.RespondToShot(ctx, e.At)
		if err != nil {
			// Roll the response marker back so a redelivered
			// shot_fired can trigger a fresh attempt.
			s.Rec.RespondFailed(e.At)
		}
		return err
	case reconcile.ProveGameEnd:
		_, err := s.ProveGameEnd(ctx)
		return err
	default:
		return fmt.Errorf("unknown effect %T", eff)
	}
}

// withRetry retries fn with doubling backoff. Input and claim errors
// are not retried; they are precise, local and final.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := s.retryBase
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == s.retryAttempts {
			break
		}
		s.Log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s: %w", op, err)
}

func retryable(err error) bool {
	var mismatch *claim.ClaimMismatchError
	var incomplete *claim.IncompleteSinkError
	var oob *verify.OutOfBoundsError
	if errors.As(err, &mismatch) || errors.As(err, &incomplete) || errors.As(err, &oob) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
