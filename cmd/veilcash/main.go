// main.go - End-to-end demo: genesis mint, confidential spend, token recovery.
//
// This walks the full lifecycle of a bearer token:
//   - A spentbook section of N nodes is dealt a threshold BLS key set
//   - The genesis transaction mints the total supply into a single token
//   - The genesis token is spent into a recipient token and a change token,
//     hidden among decoy ring members
//   - Each transaction gathers spent proof shares from threshold+1 nodes,
//     combines them, and mints verified output tokens
//   - A minted token survives a serialization round trip
//
// Usage:
//   go run ./cmd/veilcash [-config config.json]

package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/hzcrypt/veilcash"
	"github.com/hzcrypt/veilcash/mock"
	"github.com/hzcrypt/veilcash/ringct"
	"github.com/hzcrypt/veilcash/ringct/rangeproof"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func run(config *Config, logger zerolog.Logger) error {
	// 1. Deal a spentbook section and trust its section key.
	section, pks, err := mock.NewSection(config.Threshold, config.Nodes, rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to create spentbook section: %w", err)
	}
	km := mock.NewKeyManager(pks.PublicKey())
	logger.Info().
		Int("nodes", config.Nodes).
		Int("threshold", config.Threshold).
		Msg("spentbook section ready")

	// Optional range proofs. The Groth16 setup is expensive on first run;
	// keys are cached on disk afterwards.
	var prover *rangeproof.Prover
	var verifier *rangeproof.Verifier
	if config.EnableRangeProofs {
		logger.Info().Msg("setting up range proof keys (this can take a while)")
		prover, verifier, err = rangeproof.SetupOrLoadKeys(config.ProvingKeyPath, config.VerifyingKeyPath)
		if err != nil {
			return fmt.Errorf("range proof setup failed: %w", err)
		}
	}

	// 2. Mint the genesis token. The genesis ring has size 1.
	genesis := veilcash.NewGenesisMaterial()
	for _, node := range section {
		node.RegisterOutput(genesis.TrueInput.PublicKey(), genesis.TrueInput.Commitment())
	}

	builder := veilcash.NewTransactionBuilder().
		SetDecoysPerInput(0).
		AddTrueInput(genesis.TrueInput).
		AddOutputByAmount(veilcash.GenesisAmount, genesis.OwnerOnce)
	if prover != nil {
		builder = builder.SetRangeProver(prover)
	}

	genesisToken, err := buildAndMint(builder, section, km, config.Threshold, logger)
	if err != nil {
		return fmt.Errorf("genesis mint failed: %w", err)
	}
	logger.Info().
		Str("token", genesisToken.Token.Hash().String()).
		Uint64("amount", genesisToken.AmountSecrets.Value).
		Msg("genesis token minted")

	// 3. Spend the genesis token: split into a recipient token and change,
	// hidden among decoys.
	recipient, err := veilcash.NewRandomOwner(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to create recipient owner: %w", err)
	}
	recipientOnce, err := veilcash.NewOwnerOnce(recipient, rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to derive recipient key: %w", err)
	}
	changeOnce, err := veilcash.NewOwnerOnce(genesis.OwnerOnce.OwnerBase, rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to derive change key: %w", err)
	}

	decoys, err := makeDecoys(section, config.DecoysPerInput, logger)
	if err != nil {
		return fmt.Errorf("failed to seed decoys: %w", err)
	}

	builder = veilcash.NewTransactionBuilder().
		SetDecoysPerInput(config.DecoysPerInput).
		SetRequireAllDecoys(true).
		AddDecoyInputs(decoys)
	if prover != nil {
		builder = builder.SetRangeProver(prover)
	}
	builder, err = builder.AddInputTokenBearer(&genesisToken.Token)
	if err != nil {
		return fmt.Errorf("failed to add genesis token as input: %w", err)
	}
	builder = builder.AddOutputsByAmount([]veilcash.OutputRecipient{
		{Amount: config.SplitAmount, Owner: recipientOnce},
		{Amount: veilcash.GenesisAmount - config.SplitAmount, Owner: changeOnce},
	})

	if got, want := builder.InputsAmountSum(), builder.OutputsAmountSum(); got != want {
		return fmt.Errorf("amount mismatch: inputs %d, outputs %d", got, want)
	}

	minted, err := buildAndMintAll(builder, section, km, config.Threshold, logger)
	if err != nil {
		return fmt.Errorf("spend failed: %w", err)
	}
	for _, m := range minted {
		logger.Info().
			Str("token", m.Token.Hash().String()).
			Uint64("amount", m.AmountSecrets.Value).
			Msg("token minted")
	}

	// 4. Everyone else can verify the minted tokens without amount secrets.
	for i := range minted {
		if err := minted[i].Token.Verify(km); err != nil {
			return fmt.Errorf("minted token failed verification: %w", err)
		}
	}
	if verifier != nil {
		for i := range minted {
			if err := rangeproof.VerifyTransaction(verifier, &minted[i].Token.Transaction); err != nil {
				return fmt.Errorf("range proof verification failed: %w", err)
			}
		}
		logger.Info().Msg("range proofs verified")
	}

	// 5. Serialization round trip: a token is a self-contained bearer
	// certificate.
	data, err := minted[0].Token.MarshalCBOR()
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	var decoded veilcash.Token
	if err := decoded.UnmarshalCBOR(data); err != nil {
		return fmt.Errorf("failed to decode token: %w", err)
	}
	if err := decoded.Verify(km); err != nil {
		return fmt.Errorf("decoded token failed verification: %w", err)
	}
	logger.Info().
		Int("bytes", len(data)).
		Str("token", decoded.Hash().String()).
		Msg("token round trip verified")

	// 6. Double spend attempt: the spentbook must refuse a second
	// attestation for the same key image.
	doubleSpend := veilcash.NewTransactionBuilder().
		SetDecoysPerInput(0).
		AddTrueInput(genesis.TrueInput).
		AddOutputByAmount(veilcash.GenesisAmount, genesis.OwnerOnce)
	_, err = buildAndMint(doubleSpend, section, km, config.Threshold, logger)
	if err == nil {
		return fmt.Errorf("double spend was not rejected")
	}
	logger.Info().Err(err).Msg("double spend rejected as expected")

	logger.Info().Msg("demo complete")
	return nil
}

// buildAndMintAll signs the transaction, gathers spent proof shares from
// threshold+1 section nodes, and mints the output tokens.
func buildAndMintAll(builder veilcash.TransactionBuilder, section []*mock.SpentbookNode, km veilcash.KeyManager, threshold int, logger zerolog.Logger) ([]veilcash.MintedOutput, error) {
	tokenBuilder, err := builder.Build(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	logger.Debug().
		Str("tx", fmt.Sprintf("%x", tokenBuilder.Transaction.Hash())).
		Int("inputs", len(tokenBuilder.Transaction.Mlsags)).
		Int("outputs", len(tokenBuilder.Transaction.Outputs)).
		Msg("transaction signed")

	for _, keyImage := range tokenBuilder.Inputs() {
		for _, node := range section[:threshold+1] {
			share, err := node.LogSpent(keyImage, tokenBuilder.Transaction)
			if err != nil {
				return nil, fmt.Errorf("spentbook refused %v: %w", keyImage, err)
			}
			tokenBuilder = tokenBuilder.AddSpentProofShare(share)
		}
	}

	minted, err := tokenBuilder.Build(km)
	if err != nil {
		return nil, fmt.Errorf("failed to mint tokens: %w", err)
	}
	return minted, nil
}

// buildAndMint is buildAndMintAll for single-output transactions.
func buildAndMint(builder veilcash.TransactionBuilder, section []*mock.SpentbookNode, km veilcash.KeyManager, threshold int, logger zerolog.Logger) (*veilcash.MintedOutput, error) {
	minted, err := buildAndMintAll(builder, section, km, threshold, logger)
	if err != nil {
		return nil, err
	}
	if len(minted) != 1 {
		return nil, fmt.Errorf("expected 1 minted token, got %d", len(minted))
	}
	return &minted[0], nil
}

// makeDecoys seeds the section registry with unrelated outputs so the spend
// has ring members to hide among.
func makeDecoys(section []*mock.SpentbookNode, n int, logger zerolog.Logger) ([]ringct.DecoyInput, error) {
	decoys := make([]ringct.DecoyInput, 0, n)
	for i := 0; i < n; i++ {
		sk, err := ringct.RandomScalar(rand.Reader)
		if err != nil {
			return nil, err
		}
		rc, err := ringct.NewRevealedCommitment(ringct.Amount(i+1)*1000, rand.Reader)
		if err != nil {
			return nil, err
		}
		pk := ringct.PublicKeyFromSecret(&sk)
		commitment := rc.Commit()
		for _, node := range section {
			node.RegisterOutput(pk, commitment)
		}
		decoys = append(decoys, ringct.DecoyInput{PublicKey: pk, Commitment: commitment})
	}
	logger.Debug().Int("decoys", n).Msg("decoy outputs registered")
	return decoys, nil
}
