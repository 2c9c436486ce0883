package tokenops

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sreeramp-official/solana-token-app/internal/amount"
	"github.com/sreeramp-official/solana-token-app/internal/confirm"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
	"github.com/sreeramp-official/solana-token-app/internal/wallet"
)

// Errors surfaced by the forms. Boundary errors are re-exported so callers
// only need this package to classify a failure.
var (
	ErrWalletNotConnected   = wallet.ErrWalletNotConnected
	ErrSigningRejected      = wallet.ErrSigningRejected
	ErrInvalidAddress       = solana.ErrInvalidAddress
	ErrRPC                  = solana.ErrRPC
	ErrMintNotFound         = solana.ErrMintNotFound
	ErrTokenAccountNotFound = solana.ErrTokenAccountNotFound
	ErrInvalidAmount        = amount.ErrInvalidAmount
	ErrConfirmTimeout       = confirm.ErrTimeout

	// ErrUnauthorized is returned when the wallet is not the mint authority.
	ErrUnauthorized = errors.New("not mint authority")

	// ErrInsufficientBalance is returned when a transfer exceeds the verified balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerRejected is returned when the ledger refuses or fails a transaction.
	ErrLedgerRejected = errors.New("transaction rejected by ledger")

	// ErrInvalidInput is returned for missing or malformed form fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy is returned when a form already has a call in flight.
	ErrBusy = errors.New("form busy")

	// ErrNotVerified is returned when submitting a form that needs a
	// verification result it does not hold.
	ErrNotVerified = errors.New("not verified")
)

// Kind is the classified category of a form error.
type Kind string

const (
	KindNone                 Kind = ""
	KindWalletNotConnected   Kind = "wallet_not_connected"
	KindSigningRejected      Kind = "signing_rejected"
	KindInvalidAddress       Kind = "invalid_address"
	KindInvalidAmount        Kind = "invalid_amount"
	KindInvalidInput         Kind = "invalid_input"
	KindUnauthorized         Kind = "unauthorized"
	KindInsufficientBalance  Kind = "insufficient_balance"
	KindMintNotFound         Kind = "mint_not_found"
	KindTokenAccountNotFound Kind = "token_account_not_found"
	KindBusy                 Kind = "busy"
	KindNotVerified          Kind = "not_verified"
	KindRPC                  Kind = "rpc"
	KindLedgerRejected       Kind = "ledger_rejected"
	KindConfirmTimeout       Kind = "confirm_timeout"
	KindCanceled             Kind = "canceled"
	KindInternal             Kind = "internal"
)

// classified is checked in order; the first match wins.
var classified = []struct {
	err  error
	kind Kind
}{
	{ErrWalletNotConnected, KindWalletNotConnected},
	{ErrSigningRejected, KindSigningRejected},
	{ErrBusy, KindBusy},
	{ErrNotVerified, KindNotVerified},
	{ErrInvalidAddress, KindInvalidAddress},
	{ErrInvalidAmount, KindInvalidAmount},
	{amount.ErrInvalidDecimals, KindInvalidInput},
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInsufficientBalance, KindInsufficientBalance},
	{ErrMintNotFound, KindMintNotFound},
	{ErrTokenAccountNotFound, KindTokenAccountNotFound},
	{ErrLedgerRejected, KindLedgerRejected},
	{ErrConfirmTimeout, KindConfirmTimeout},
	{ErrRPC, KindRPC},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindRPC},
}

// Classify maps an error to its Kind. nil maps to KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, c := range classified {
		if errors.Is(err, c.err) {
			return c.kind
		}
	}
	return KindInternal
}

// HTTPStatus returns the response status for a Kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNone:
		return http.StatusOK
	case KindWalletNotConnected:
		return http.StatusUnauthorized
	case KindUnauthorized, KindSigningRejected:
		return http.StatusForbidden
	case KindInvalidAddress, KindInvalidAmount, KindInvalidInput:
		return http.StatusBadRequest
	case KindMintNotFound, KindTokenAccountNotFound:
		return http.StatusNotFound
	case KindBusy, KindNotVerified:
		return http.StatusConflict
	case KindInsufficientBalance, KindLedgerRejected:
		return http.StatusUnprocessableEntity
	case KindRPC:
		return http.StatusBadGateway
	case KindConfirmTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ledgerError maps errors from the RPC boundary into the form taxonomy.
// Transaction rejections become ErrLedgerRejected; any other JSON-RPC
// error is treated as an RPC failure.
func ledgerError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *solana.RPCError
	switch {
	case errors.As(err, &rpcErr) && rpcErr.IsTransactionRejected():
		return fmt.Errorf("%w: %w", ErrLedgerRejected, err)
	case errors.As(err, &rpcErr):
		return fmt.Errorf("%w: %w", ErrRPC, err)
	case errors.Is(err, confirm.ErrTransactionFailed):
		return fmt.Errorf("%w: %w", ErrLedgerRejected, err)
	}
	return err
}
