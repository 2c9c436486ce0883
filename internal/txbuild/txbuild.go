// Package txbuild assembles token-program transactions with the blocto SDK
// and collects signatures from a wallet Signer plus any local keys.
package txbuild

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// ErrNoInstructions is returned when a transaction would be empty.
var ErrNoInstructions = errors.New("no instructions")

// CreateMintParams describes a new mint funded and controlled by Payer.
type CreateMintParams struct {
	Payer         string // wallet address; fee payer, mint and freeze authority
	Mint          string // address of the freshly generated mint keypair
	Decimals      uint8
	RentLamports  uint64
	InitialSupply uint64 // raw units minted to the payer's associated account
}

// CreateMint returns create-account, initialize-mint and create-associated-account
// instructions, plus mint-to when InitialSupply is non-zero.
func CreateMint(p CreateMintParams) ([]types.Instruction, error) {
	payer, err := publicKey(p.Payer)
	if err != nil {
		return nil, fmt.Errorf("payer: %w", err)
	}
	mint, err := publicKey(p.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	ata, err := associatedAccount(p.Payer, p.Mint)
	if err != nil {
		return nil, err
	}

	ixs := []types.Instruction{
		system.CreateAccount(system.CreateAccountParam{
			From:     payer,
			New:      mint,
			Owner:    common.TokenProgramID,
			Lamports: p.RentLamports,
			Space:    token.MintAccountSize,
		}),
		token.InitializeMint(token.InitializeMintParam{
			Decimals:   p.Decimals,
			Mint:       mint,
			MintAuth:   payer,
			FreezeAuth: &payer,
		}),
		createAssociatedAccount(payer, payer, mint, ata),
	}
	if p.InitialSupply > 0 {
		ixs = append(ixs, token.MintTo(token.MintToParam{
			Mint:   mint,
			To:     ata,
			Auth:   payer,
			Amount: p.InitialSupply,
		}))
	}
	return ixs, nil
}

// MintToParams describes minting Amount raw units to Recipient's associated account.
type MintToParams struct {
	Authority         string
	Mint              string
	Recipient         string // owner of the destination associated account
	CreateDestination bool   // destination account does not exist yet
	Amount            uint64
}

// MintTo returns mint-to, preceded by create-associated-account when needed.
func MintTo(p MintToParams) ([]types.Instruction, error) {
	auth, err := publicKey(p.Authority)
	if err != nil {
		return nil, fmt.Errorf("authority: %w", err)
	}
	mint, err := publicKey(p.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	recipient, err := publicKey(p.Recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	dest, err := associatedAccount(p.Recipient, p.Mint)
	if err != nil {
		return nil, err
	}

	var ixs []types.Instruction
	if p.CreateDestination {
		ixs = append(ixs, createAssociatedAccount(auth, recipient, mint, dest))
	}
	ixs = append(ixs, token.MintTo(token.MintToParam{
		Mint:   mint,
		To:     dest,
		Auth:   auth,
		Amount: p.Amount,
	}))
	return ixs, nil
}

// TransferParams describes moving Amount raw units between associated accounts.
type TransferParams struct {
	Owner             string // sender wallet; signs and pays
	Mint              string
	Source            string // sender token account
	Recipient         string // recipient wallet
	CreateDestination bool
	Amount            uint64
}

// Transfer returns transfer, preceded by create-associated-account for the
// recipient when needed.
func Transfer(p TransferParams) ([]types.Instruction, error) {
	owner, err := publicKey(p.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	mint, err := publicKey(p.Mint)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	source, err := publicKey(p.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	recipient, err := publicKey(p.Recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	dest, err := associatedAccount(p.Recipient, p.Mint)
	if err != nil {
		return nil, err
	}

	var ixs []types.Instruction
	if p.CreateDestination {
		ixs = append(ixs, createAssociatedAccount(owner, recipient, mint, dest))
	}
	ixs = append(ixs, token.Transfer(token.TransferParam{
		From:   source,
		To:     dest,
		Auth:   owner,
		Amount: p.Amount,
	}))
	return ixs, nil
}

func createAssociatedAccount(funder, owner, mint, ata common.PublicKey) types.Instruction {
	return associated_token_account.CreateAssociatedTokenAccount(
		associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 funder,
			Owner:                  owner,
			Mint:                   mint,
			AssociatedTokenAccount: ata,
		},
	)
}

func associatedAccount(owner, mint string) (common.PublicKey, error) {
	addr, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive associated account: %w", err)
	}
	return common.PublicKeyFromString(addr), nil
}

// publicKey validates before converting; the SDK parser ignores decode errors.
func publicKey(addr string) (common.PublicKey, error) {
	if err := solana.ValidateAddress(addr); err != nil {
		return common.PublicKey{}, err
	}
	return common.PublicKeyFromString(addr), nil
}

// Signed is a serialized, fully signed transaction.
type Signed struct {
	Raw       []byte
	Signature string // first signature, base58; the transaction ID
}

// Sign compiles ixs into a message paid by feePayer, collects the wallet
// signature and signs with each local key in extra.
func Sign(ctx context.Context, feePayer wallet.Signer, blockhash string, ixs []types.Instruction, extra ...types.Account) (*Signed, error) {
	if len(ixs) == 0 {
		return nil, ErrNoInstructions
	}
	payer, err := publicKey(feePayer.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("fee payer: %w", err)
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer,
		RecentBlockhash: blockhash,
		Instructions:    ixs,
	})

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: msg,
		Signers: extra,
	})
	if err != nil {
		return nil, fmt.Errorf("new transaction: %w", err)
	}

	msgBytes, err := msg.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	sig, err := feePayer.SignMessage(ctx, msgBytes)
	if err != nil {
		return nil, fmt.Errorf("wallet sign: %w", err)
	}
	if err := tx.AddSignature(sig); err != nil {
		return nil, fmt.Errorf("add wallet signature: %w", err)
	}

	raw, err := tx.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	return &Signed{
		Raw:       raw,
		Signature: base58.Encode(tx.Signatures[0]),
	}, nil
}
