package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"zkbattleship/internal/app"
	"zkbattleship/internal/claim"
	"zkbattleship/internal/codec"
	"zkbattleship/internal/commit"
	"zkbattleship/internal/game"
	"zkbattleship/internal/ledger"
	"zkbattleship/internal/prover"
	"zkbattleship/internal/relay"
	"zkbattleship/internal/server"
	"zkbattleship/internal/verify"
	"zkbattleship/internal/zk"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cliApp := &cli.App{
		Name:  "battleship",
		Usage: "commit-reveal-verify battleship client",
		Commands: []*cli.Command{
			cmdInit(),
			cmdCommit(log),
			cmdProveShot(log),
			cmdVerifyShot(),
			cmdProveEnd(log),
			cmdVerifyEnd(),
			cmdPlay(log),
			cmdServe(log),
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func cmdInit() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "generate a random valid board",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "board.json", Usage: "output board file"},
		},
		Action: func(c *cli.Context) error {
			b, err := game.GenerateRandomBoard()
			if err != nil {
				return err
			}
			if err := saveJSON(c.String("out"), b); err != nil {
				return err
			}
			fmt.Println("wrote", c.String("out"))
			return nil
		},
	}
}

func cmdCommit(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "commit",
		Usage: "commit a board and write the defender secret",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "board", Value: "board.json"},
			&cli.StringFlag{Name: "secret", Value: "secret.json"},
			&cli.StringFlag{Name: "keys", Value: "./keys"},
		},
		Action: func(c *cli.Context) error {
			var b game.Board
			if err := loadJSON(c.String("board"), &b); err != nil {
				return err
			}
			if err := b.Validate(); err != nil {
				return err
			}
			salt, err := commit.NewSalt()
			if err != nil {
				return err
			}
			root, err := commit.Board(&b, salt)
			if err != nil {
				return err
			}
			if err := zk.EnsureKeys(c.String("keys")); err != nil {
				return err
			}
			sec := codec.Secret{Board: b, SaltHex: salt.Hex(), Commitment: root.Hex()}
			if err := saveJSON(c.String("secret"), &sec); err != nil {
				return err
			}
			fmt.Println("COMMITMENT:", root.Hex())
			fmt.Println("wrote", c.String("secret"))
			return nil
		},
	}
}

func cmdProveShot(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "prove-shot",
		Usage: "prove the outcome of a shot against the committed board",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "secret", Value: "secret.json"},
			&cli.StringFlag{Name: "keys", Value: "./keys"},
			&cli.IntFlag{Name: "x", Required: true},
			&cli.IntFlag{Name: "y", Required: true},
			&cli.StringFlag{Name: "out", Value: "proof.json"},
		},
		Action: func(c *cli.Context) error {
			sec, salt, err := loadSecret(c.String("secret"))
			if err != nil {
				return err
			}
			at := game.Coord{X: c.Int("x"), Y: c.Int("y")}
			hit, err := verify.IsHit(&sec.Board, at)
			if err != nil {
				return err
			}
			in, err := claim.BuildShotClaim(&sec.Board, at, hit, salt)
			if err != nil {
				return err
			}
			p, err := prover.NewLocal(c.String("keys"), log)
			if err != nil {
				return err
			}
			proof, err := p.Prove(context.Background(), in)
			if err != nil {
				return err
			}
			payload := codec.ShotProofPayload{
				Proof:      proof,
				Commitment: in.Commitment.Hex(),
				X:          at.X,
				Y:          at.Y,
				Hit:        hit,
			}
			if err := saveJSON(c.String("out"), &payload); err != nil {
				return err
			}
			fmt.Printf("wrote %s (result: %s)\n", c.String("out"), resultWord(hit))
			return nil
		},
	}
}

func cmdVerifyShot() *cli.Command {
	return &cli.Command{
		Name:  "verify-shot",
		Usage: "verify an opponent's shot-result proof",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "keys", Value: "./keys"},
			&cli.StringFlag{Name: "commitment", Required: true, Usage: "opponent commitment hex"},
			&cli.StringFlag{Name: "proof", Value: "proof.json"},
			&cli.IntFlag{Name: "x", Required: true},
			&cli.IntFlag{Name: "y", Required: true},
		},
		Action: func(c *cli.Context) error {
			var payload codec.ShotProofPayload
			if err := loadJSON(c.String("proof"), &payload); err != nil {
				return err
			}
			at := game.Coord{X: c.Int("x"), Y: c.Int("y")}
			if payload.X != at.X || payload.Y != at.Y {
				return fmt.Errorf("proof is for (%d,%d), expected (%d,%d)", payload.X, payload.Y, at.X, at.Y)
			}
			root, err := commit.DigestFromHex(c.String("commitment"))
			if err != nil {
				return err
			}
			if payload.Commitment != root.Hex() {
				return fmt.Errorf("proof commitment does not match expected commitment")
			}
			ok, err := zk.Verify(zk.VKPath(c.String("keys"), claim.CircuitShot), payload.Proof,
				zk.ShotPublic(root, at.Index(), payload.Hit))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("invalid proof")
			}
			fmt.Println(resultWord(payload.Hit))
			return nil
		},
	}
}

// shotRecord is the CLI file shape for a recorded shot history.
type shotRecord struct {
	X   int  `json:"x"`
	Y   int  `json:"y"`
	Hit bool `json:"hit"`
}

func cmdProveEnd(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "prove-end",
		Usage: "prove the committed fleet is fully sunk",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "secret", Value: "secret.json"},
			&cli.StringFlag{Name: "keys", Value: "./keys"},
			&cli.StringFlag{Name: "shots", Value: "shots.json", Usage: "recorded shots against this board"},
			&cli.StringFlag{Name: "out", Value: "end-proof.json"},
		},
		Action: func(c *cli.Context) error {
			sec, salt, err := loadSecret(c.String("secret"))
			if err != nil {
				return err
			}
			var shots []shotRecord
			if err := loadJSON(c.String("shots"), &shots); err != nil {
				return err
			}
			m := game.NewShotMap()
			for _, s := range shots {
				m.Record(game.Coord{X: s.X, Y: s.Y}, s.Hit)
			}
			in, err := claim.BuildGameEndClaim(&sec.Board, m, salt)
			if err != nil {
				return err
			}
			p, err := prover.NewLocal(c.String("keys"), log)
			if err != nil {
				return err
			}
			proof, err := p.Prove(context.Background(), in)
			if err != nil {
				return err
			}
			payload := codec.GameEndProofPayload{
				Proof:         proof,
				Commitment:    in.Commitment.Hex(),
				History:       in.History,
				HistoryDigest: in.HistoryDigest.Hex(),
			}
			if err := saveJSON(c.String("out"), &payload); err != nil {
				return err
			}
			fmt.Println("wrote", c.String("out"))
			return nil
		},
	}
}

func cmdVerifyEnd() *cli.Command {
	return &cli.Command{
		Name:  "verify-end",
		Usage: "verify an opponent's game-end proof",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "keys", Value: "./keys"},
			&cli.StringFlag{Name: "commitment", Required: true},
			&cli.StringFlag{Name: "proof", Value: "end-proof.json"},
		},
		Action: func(c *cli.Context) error {
			var payload codec.GameEndProofPayload
			if err := loadJSON(c.String("proof"), &payload); err != nil {
				return err
			}
			root, err := commit.DigestFromHex(c.String("commitment"))
			if err != nil {
				return err
			}
			digest, err := commit.DigestFromHex(payload.HistoryDigest)
			if err != nil {
				return err
			}
			pub, err := zk.GameEndPublic(root, payload.History, digest)
			if err != nil {
				return err
			}
			ok, err := zk.Verify(zk.VKPath(c.String("keys"), claim.CircuitGameEnd), payload.Proof, pub)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("invalid proof")
			}
			fmt.Println("GAME OVER: fleet sunk")
			return nil
		},
	}
}

func cmdPlay(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "connect to the relay and drive a session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "relay", Required: true, Usage: "relay websocket URL"},
			&cli.StringFlag{Name: "player", Required: true, Usage: "local player id"},
			&cli.StringFlag{Name: "keys", Value: "./keys"},
			&cli.StringFlag{Name: "secret", Value: "secret.json"},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context
			p, err := prover.NewLocal(c.String("keys"), log)
			if err != nil {
				return err
			}
			svc := app.New(c.String("player"), p, ledger.NewMemory(), log)
			if sec, _, err := loadSecret(c.String("secret")); err == nil {
				if err := svc.Restore(sec); err != nil {
					return err
				}
			}
			ch, err := relay.Dial(ctx, c.String("relay"), c.String("player"), log)
			if err != nil {
				return err
			}
			defer ch.Close()
			if sec, err := svc.Secret(); err == nil {
				if err := ch.SubmitBoard(sec.Commitment, nil); err != nil {
					return err
				}
			}
			return svc.Run(ctx, ch)
		},
	}
}

func cmdServe(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the local control API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080"},
			&cli.StringFlag{Name: "player", Required: true},
			&cli.StringFlag{Name: "keys", Value: "./keys"},
		},
		Action: func(c *cli.Context) error {
			p, err := prover.NewLocal(c.String("keys"), log)
			if err != nil {
				return err
			}
			svc := app.New(c.String("player"), p, ledger.NewMemory(), log)
			srv := server.New(svc, log)
			mux := http.NewServeMux()
			srv.Routes(mux)
			log.Info().Str("addr", c.String("addr")).Msg("serving")
			return http.ListenAndServe(c.String("addr"), mux)
		},
	}
}

func resultWord(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func loadSecret(path string) (*codec.Secret, commit.Salt, error) {
	var sec codec.Secret
	if err := loadJSON(path, &sec); err != nil {
		return nil, commit.Salt{}, err
	}
	salt, err := commit.SaltFromHex(sec.SaltHex)
	if err != nil {
		return nil, commit.Salt{}, err
	}
	return &sec, salt, nil
}

func saveJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
