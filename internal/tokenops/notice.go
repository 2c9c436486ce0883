package tokenops

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sreeramp-official/solana-token-app/internal/solana"
)

// Action names a user-facing operation for notices and metrics.
type Action string

const (
	ActionDashboard  Action = "dashboard"
	ActionCreate     Action = "create"
	ActionVerifyMint Action = "verify_mint"
	ActionMint       Action = "mint"
	ActionVerifySend Action = "verify_send"
	ActionSend       Action = "send"
	ActionHistory    Action = "history"
	ActionReport     Action = "report"
)

// Notice variants.
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Notice is the user-facing result message of a form call.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

var errorTitles = map[Action]string{
	ActionDashboard:  "Error fetching token accounts",
	ActionCreate:     "Error creating token",
	ActionVerifyMint: "Error verifying mint",
	ActionMint:       "Error minting tokens",
	ActionVerifySend: "Error verifying token",
	ActionSend:       "Error sending tokens",
	ActionHistory:    "Error fetching transactions",
	ActionReport:     "Error generating report",
}

var purposes = map[Action]string{
	ActionDashboard:  "view your balances",
	ActionCreate:     "create a token",
	ActionVerifyMint: "mint tokens",
	ActionMint:       "mint tokens",
	ActionVerifySend: "send tokens",
	ActionSend:       "send tokens",
	ActionHistory:    "view your transaction history",
	ActionReport:     "view your operations report",
}

// ErrorNotice builds the destructive notice shown for err during action.
func ErrorNotice(action Action, err error) Notice {
	n := Notice{Title: errorTitles[action], Variant: VariantDestructive}
	if n.Title == "" {
		n.Title = "Error"
	}

	switch Classify(err) {
	case KindWalletNotConnected:
		n.Title = "Wallet not connected"
		n.Description = fmt.Sprintf("Please connect your wallet to %s.", purposes[action])
	case KindInvalidAddress:
		switch action {
		case ActionVerifyMint:
			n.Title = "Invalid mint address"
			n.Description = "The provided address is not a valid Solana address."
		case ActionVerifySend:
			n.Title = "Invalid token mint"
			n.Description = "The provided address is not a valid Solana address."
		case ActionSend:
			n.Title = "Invalid recipient address"
			n.Description = "The provided recipient address is not valid."
		default:
			n.Title = "Invalid wallet address"
			n.Description = "The provided address is not a valid Solana address."
		}
	case KindUnauthorized:
		n.Title = "Not authorized"
		n.Description = "Your wallet is not the mint authority for this token."
	case KindTokenAccountNotFound:
		n.Title = "Token not found"
		n.Description = "You don't have any tokens for this mint address."
	case KindMintNotFound:
		n.Title = "Mint not found"
		n.Description = "No token mint exists at this address."
	case KindInsufficientBalance:
		n.Title = "Insufficient balance"
		n.Description = detail(err, ErrInsufficientBalance)
	case KindInvalidAmount:
		n.Title = "Invalid amount"
		n.Description = "Please enter a valid amount greater than 0."
	case KindNotVerified:
		if action == ActionSend {
			n.Title = "Cannot send tokens"
			n.Description = "Please verify the token mint first."
		} else {
			n.Title = "Cannot mint tokens"
			n.Description = "Please verify the mint address first."
		}
	case KindBusy:
		n.Title = "Please wait"
		n.Description = "A previous request from this form is still in progress."
	case KindSigningRejected:
		n.Title = "Signature rejected"
		n.Description = "The wallet declined to sign the transaction."
	case KindInvalidInput:
		n.Description = detail(err, ErrInvalidInput)
	case KindRPC:
		switch action {
		case ActionDashboard:
			n.Description = "Failed to load your token accounts. Please try again."
		case ActionHistory:
			n.Description = "Failed to load your transaction history."
		default:
			n.Description = err.Error()
		}
	default:
		n.Description = err.Error()
	}
	return n
}

// SuccessNotice builds the notice shown after a successful form call.
func SuccessNotice(action Action, r *Receipt) Notice {
	n := Notice{Variant: VariantDefault}
	switch action {
	case ActionCreate:
		n.Title = "Token created successfully!"
		n.Description = fmt.Sprintf("Your new token has been created with mint address: %s...", prefix(r.Mint, 10))
	case ActionMint:
		n.Title = "Tokens minted successfully!"
		n.Description = fmt.Sprintf("%s tokens have been minted to your wallet.", r.Amount)
	case ActionSend:
		n.Title = "Tokens sent successfully!"
		recipient := r.Recipient
		if len(recipient) > 10 {
			recipient = recipient[:6] + "..." + recipient[len(recipient)-4:]
		}
		n.Description = fmt.Sprintf("%s tokens have been sent to %s", r.Amount, recipient)
	default:
		n.Title = "Done"
	}
	return n
}

// VerifiedMintNotice is shown after a successful mint verification.
func VerifiedMintNotice() Notice {
	return Notice{
		Title:       "Mint verified",
		Description: "You are authorized to mint this token.",
		Variant:     VariantDefault,
	}
}

// VerifiedTokenNotice is shown after a successful send verification.
func VerifiedTokenNotice(balance string) Notice {
	return Notice{
		Title:       "Token verified",
		Description: fmt.Sprintf("Your balance: %s tokens", balance),
		Variant:     VariantDefault,
	}
}

// detail strips the sentinel prefix from a wrapped error message and
// capitalizes the rest.
func detail(err, sentinel error) string {
	msg := err.Error()
	if errors.Is(err, sentinel) {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// short is solana.ShortAddress, kept local for log lines.
func short(addr string) string {
	return solana.ShortAddress(addr)
}
