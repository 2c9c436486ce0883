// Package stub provides an in-memory Solana ledger that implements
// solana.RPCClient for tests. Submitted transactions are decoded and the
// system, token and associated-token instructions are applied atomically.
package stub

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/sreeramp-official/solana-token-app/internal/domain"
	"github.com/sreeramp-official/solana-token-app/internal/solana"
)

// Defaults served by the ledger.
const (
	DefaultBlockhash   = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"
	DefaultRentExempt  = uint64(1461600)
	DefaultFeeLamports = uint64(5000)
	ataRentLamports    = uint64(2039280)
)

// Ledger implements solana.RPCClient backed by maps.
type Ledger struct {
	mu sync.Mutex

	lamports      map[string]uint64
	mints         map[string]*domain.Mint
	tokenAccounts map[string]*domain.TokenAccount
	metadata      map[string][]byte
	owners        map[string]string // account -> owning program
	signatures    map[string][]solana.SignatureInfo
	statuses      map[string]*solana.SignatureStatus

	calls map[string]int
	fail  map[string]error
	sent  [][]byte
	slot  int64

	// PendingPolls makes GetSignatureStatuses report unknown this many times
	// before the real status.
	PendingPolls int
	// BlockTime is stamped on recorded signatures when non-zero.
	BlockTime int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		lamports:      make(map[string]uint64),
		mints:         make(map[string]*domain.Mint),
		tokenAccounts: make(map[string]*domain.TokenAccount),
		metadata:      make(map[string][]byte),
		owners:        make(map[string]string),
		signatures:    make(map[string][]solana.SignatureInfo),
		statuses:      make(map[string]*solana.SignatureStatus),
		calls:         make(map[string]int),
		fail:          make(map[string]error),
		slot:          1000,
	}
}

// Fund credits lamports to an address.
func (l *Ledger) Fund(address string, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lamports[address] += lamports
	if _, ok := l.owners[address]; !ok {
		l.owners[address] = solana.SystemProgramID
	}
}

// AddMint installs a mint account.
func (l *Ledger) AddMint(m *domain.Mint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *m
	if cp.Supply == nil {
		cp.Supply = new(big.Int)
	}
	l.mints[m.Address] = &cp
	l.owners[m.Address] = solana.TokenProgramID
}

// AddTokenAccount installs a token account.
func (l *Ledger) AddTokenAccount(a *domain.TokenAccount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *a
	if cp.Amount == nil {
		cp.Amount = new(big.Int)
	}
	l.tokenAccounts[a.Address] = &cp
	l.owners[a.Address] = solana.TokenProgramID
}

// AddMetadata installs raw Metaplex metadata for a mint.
func (l *Ledger) AddMetadata(mint string, data []byte) error {
	pda, err := solana.FindMetadataAddress(mint)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metadata[pda] = data
	l.owners[pda] = solana.MetaplexProgramID
	return nil
}

// AddSignatures appends history entries for an address (newest first order is kept).
func (l *Ledger) AddSignatures(address string, sigs []solana.SignatureInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signatures[address] = append(l.signatures[address], sigs...)
}

// FailNext makes every call of method fail with err until cleared with nil.
func (l *Ledger) FailNext(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, method)
		return
	}
	l.fail[method] = err
}

// Calls returns how many times method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// TotalCalls returns the number of RPC calls across all methods.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

// Sent returns the raw transactions accepted or rejected by SendTransaction.
func (l *Ledger) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// Lamports returns the lamport balance of address.
func (l *Ledger) Lamports(address string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lamports[address]
}

// Mint returns a copy of the mint at address.
func (l *Ledger) Mint(address string) (*domain.Mint, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[address]
	if !ok {
		return nil, false
	}
	cp := *m
	cp.Supply = new(big.Int).Set(m.Supply)
	return &cp, true
}

// TokenAccount returns a copy of the token account at address.
func (l *Ledger) TokenAccount(address string) (*domain.TokenAccount, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.tokenAccounts[address]
	if !ok {
		return nil, false
	}
	cp := *a
	cp.Amount = new(big.Int).Set(a.Amount)
	return &cp, true
}

func (l *Ledger) enter(method string) error {
	l.calls[method]++
	return l.fail[method]
}

// GetBalance implements solana.RPCClient.
func (l *Ledger) GetBalance(_ context.Context, address string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getBalance"); err != nil {
		return 0, err
	}
	return l.lamports[address], nil
}

// GetTokenAccountsByOwner implements solana.RPCClient.
func (l *Ledger) GetTokenAccountsByOwner(_ context.Context, owner string) ([]solana.ParsedTokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getTokenAccountsByOwner"); err != nil {
		return nil, err
	}

	var out []solana.ParsedTokenAccount
	for addr, a := range l.tokenAccounts {
		if a.Owner != owner {
			continue
		}
		var decimals uint8
		if m, ok := l.mints[a.Mint]; ok {
			decimals = m.Decimals
		}
		out = append(out, solana.ParsedTokenAccount{
			Pubkey:   addr,
			Mint:     a.Mint,
			Owner:    a.Owner,
			Amount:   a.Amount.String(),
			Decimals: decimals,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pubkey < out[j].Pubkey })
	return out, nil
}

// GetAccountInfo implements solana.RPCClient.
func (l *Ledger) GetAccountInfo(_ context.Context, address string) (*solana.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getAccountInfo"); err != nil {
		return nil, err
	}

	if m, ok := l.mints[address]; ok {
		data, err := solana.EncodeMint(m)
		if err != nil {
			return nil, err
		}
		return l.accountInfo(address, data), nil
	}
	if a, ok := l.tokenAccounts[address]; ok {
		data, err := solana.EncodeTokenAccount(a)
		if err != nil {
			return nil, err
		}
		return l.accountInfo(address, data), nil
	}
	if data, ok := l.metadata[address]; ok {
		return l.accountInfo(address, data), nil
	}
	if lamports, ok := l.lamports[address]; ok && lamports > 0 {
		return &solana.AccountInfo{Lamports: lamports, Owner: solana.SystemProgramID}, nil
	}
	return nil, nil
}

func (l *Ledger) accountInfo(address string, data []byte) *solana.AccountInfo {
	return &solana.AccountInfo{
		Lamports: l.lamports[address],
		Owner:    l.owners[address],
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// GetSignaturesForAddress implements solana.RPCClient with before/until/limit.
func (l *Ledger) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getSignaturesForAddress"); err != nil {
		return nil, err
	}

	sigs := l.signatures[address]
	start := 0
	if opts != nil && opts.Before != "" {
		start = len(sigs)
		for i, s := range sigs {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
	}

	var out []solana.SignatureInfo
	for _, s := range sigs[start:] {
		if opts != nil && opts.Until != "" && s.Signature == opts.Until {
			break
		}
		out = append(out, s)
		if opts != nil && opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// GetLatestBlockhash implements solana.RPCClient.
func (l *Ledger) GetLatestBlockhash(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getLatestBlockhash"); err != nil {
		return "", err
	}
	return DefaultBlockhash, nil
}

// GetMinimumBalanceForRentExemption implements solana.RPCClient.
func (l *Ledger) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}
	if size == solana.MintAccountSize {
		return DefaultRentExempt, nil
	}
	return (size + 128) * 6960, nil
}

// GetSignatureStatuses implements solana.RPCClient.
func (l *Ledger) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getSignatureStatuses"); err != nil {
		return nil, err
	}

	out := make([]*solana.SignatureStatus, len(signatures))
	if l.PendingPolls > 0 {
		l.PendingPolls--
		return out, nil
	}
	for i, sig := range signatures {
		if st, ok := l.statuses[sig]; ok {
			cp := *st
			out[i] = &cp
		}
	}
	return out, nil
}

// SetStatus overrides the status reported for a signature.
func (l *Ledger) SetStatus(signature string, st *solana.SignatureStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[signature] = st
}

// SendTransaction decodes, verifies and applies a transaction.
// Rejections mirror the node's preflight failure error.
func (l *Ledger) SendTransaction(_ context.Context, rawTx []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("sendTransaction"); err != nil {
		return "", err
	}
	l.sent = append(l.sent, append([]byte(nil), rawTx...))

	tx, err := types.TransactionDeserialize(rawTx)
	if err != nil {
		return "", &solana.RPCError{Code: -32602, Message: fmt.Sprintf("failed to deserialize transaction: %v", err)}
	}
	if len(tx.Signatures) == 0 {
		return "", &solana.RPCError{Code: -32003, Message: "Transaction did not pass signature verification"}
	}
	msg, err := tx.Message.Serialize()
	if err != nil {
		return "", &solana.RPCError{Code: -32602, Message: err.Error()}
	}
	for i := 0; i < int(tx.Message.Header.NumRequireSignatures); i++ {
		if i >= len(tx.Signatures) || !ed25519.Verify(tx.Message.Accounts[i].Bytes(), msg, tx.Signatures[i]) {
			return "", &solana.RPCError{Code: -32003, Message: "Transaction did not pass signature verification"}
		}
	}
	if tx.Message.RecentBlockHash != DefaultBlockhash {
		return "", &solana.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}
	}

	signature := base58.Encode(tx.Signatures[0])
	keys := make([]string, len(tx.Message.Accounts))
	for i, k := range tx.Message.Accounts {
		keys[i] = k.ToBase58()
	}

	st := l.snapshot()
	if err := l.apply(keys, tx.Message.Instructions, len(tx.Signatures)); err != nil {
		l.restore(st)
		return "", &solana.RPCError{
			Code:    -32002,
			Message: "Transaction simulation failed: " + err.Error(),
		}
	}

	l.slot++
	info := solana.SignatureInfo{Signature: signature, Slot: l.slot}
	if l.BlockTime != 0 {
		bt := l.BlockTime
		info.BlockTime = &bt
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		l.signatures[k] = append([]solana.SignatureInfo{info}, l.signatures[k]...)
	}
	l.statuses[signature] = &solana.SignatureStatus{
		Slot:               l.slot,
		ConfirmationStatus: solana.CommitmentConfirmed,
	}
	return signature, nil
}

func (l *Ledger) apply(keys []string, ixs []types.CompiledInstruction, numSigs int) error {
	payer := keys[0]
	fee := DefaultFeeLamports * uint64(numSigs)
	if l.lamports[payer] < fee {
		return fmt.Errorf("Attempt to debit an account but found no record of a prior credit.")
	}
	l.lamports[payer] -= fee

	for i, ix := range ixs {
		accounts := make([]string, len(ix.Accounts))
		for j, idx := range ix.Accounts {
			accounts[j] = keys[idx]
		}
		program := keys[ix.ProgramIDIndex]

		var err error
		switch program {
		case solana.SystemProgramID:
			err = l.applySystem(accounts, ix.Data)
		case solana.TokenProgramID:
			err = l.applyToken(accounts, ix.Data)
		case solana.AssociatedTokenProgramID:
			err = l.applyATA(accounts, ix.Data)
		default:
			err = fmt.Errorf("unsupported program %s", program)
		}
		if err != nil {
			return fmt.Errorf("Error processing Instruction %d: %v", i, err)
		}
	}
	return nil
}

func (l *Ledger) applySystem(accounts []string, data []byte) error {
	if len(data) < 4 || binary.LittleEndian.Uint32(data) != 0 {
		return fmt.Errorf("unsupported system instruction")
	}
	if len(data) < 52 || len(accounts) < 2 {
		return fmt.Errorf("invalid instruction data")
	}
	lamports := binary.LittleEndian.Uint64(data[4:12])
	owner := base58.Encode(data[20:52])
	from, to := accounts[0], accounts[1]
	if _, exists := l.owners[to]; exists {
		return fmt.Errorf("account already in use")
	}
	if l.lamports[from] < lamports {
		return fmt.Errorf("custom program error: 0x1")
	}
	l.lamports[from] -= lamports
	l.lamports[to] += lamports
	l.owners[to] = owner
	return nil
}

// Token program instruction tags.
const (
	tokenInitializeMint = 0
	tokenTransfer       = 3
	tokenMintTo         = 7
)

func (l *Ledger) applyToken(accounts []string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("invalid instruction data")
	}
	switch data[0] {
	case tokenInitializeMint:
		if len(data) < 35 || len(accounts) < 1 {
			return fmt.Errorf("invalid instruction data")
		}
		addr := accounts[0]
		if l.owners[addr] != solana.TokenProgramID {
			return fmt.Errorf("incorrect program id for instruction")
		}
		if _, ok := l.mints[addr]; ok {
			return fmt.Errorf("custom program error: 0x6") // AlreadyInUse
		}
		auth := base58.Encode(data[2:34])
		m := &domain.Mint{
			Address:       addr,
			Decimals:      data[1],
			MintAuthority: &auth,
			Supply:        new(big.Int),
			IsInitialized: true,
		}
		if len(data) >= 67 && data[34] == 1 {
			freeze := base58.Encode(data[35:67])
			m.FreezeAuthority = &freeze
		}
		l.mints[addr] = m
		return nil

	case tokenMintTo:
		if len(data) < 9 || len(accounts) < 3 {
			return fmt.Errorf("invalid instruction data")
		}
		amount := binary.LittleEndian.Uint64(data[1:9])
		m, ok := l.mints[accounts[0]]
		if !ok {
			return fmt.Errorf("invalid account data for instruction")
		}
		dest, ok := l.tokenAccounts[accounts[1]]
		if !ok || dest.Mint != m.Address {
			return fmt.Errorf("custom program error: 0x3") // MintMismatch
		}
		if m.MintAuthority == nil || *m.MintAuthority != accounts[2] {
			return fmt.Errorf("custom program error: 0x4") // OwnerMismatch
		}
		supply := new(big.Int).Add(m.Supply, new(big.Int).SetUint64(amount))
		if !supply.IsUint64() {
			return fmt.Errorf("custom program error: 0xe") // Overflow
		}
		m.Supply = supply
		dest.Amount = new(big.Int).Add(dest.Amount, new(big.Int).SetUint64(amount))
		return nil

	case tokenTransfer:
		if len(data) < 9 || len(accounts) < 3 {
			return fmt.Errorf("invalid instruction data")
		}
		amount := new(big.Int).SetUint64(binary.LittleEndian.Uint64(data[1:9]))
		src, ok := l.tokenAccounts[accounts[0]]
		if !ok {
			return fmt.Errorf("invalid account data for instruction")
		}
		dst, ok := l.tokenAccounts[accounts[1]]
		if !ok {
			return fmt.Errorf("invalid account data for instruction")
		}
		if src.Mint != dst.Mint {
			return fmt.Errorf("custom program error: 0x3")
		}
		if src.Owner != accounts[2] {
			return fmt.Errorf("custom program error: 0x4")
		}
		if src.Amount.Cmp(amount) < 0 {
			return fmt.Errorf("custom program error: 0x1") // InsufficientFunds
		}
		src.Amount = new(big.Int).Sub(src.Amount, amount)
		dst.Amount = new(big.Int).Add(dst.Amount, amount)
		return nil
	}
	return fmt.Errorf("unsupported token instruction %d", data[0])
}

func (l *Ledger) applyATA(accounts []string, data []byte) error {
	if len(accounts) < 4 {
		return fmt.Errorf("invalid instruction data")
	}
	payer, ata, owner, mint := accounts[0], accounts[1], accounts[2], accounts[3]
	idempotent := len(data) > 0 && data[0] == 1

	want, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil || want != ata {
		return fmt.Errorf("Provided seeds do not result in a valid address")
	}
	if _, ok := l.mints[mint]; !ok {
		return fmt.Errorf("invalid account data for instruction")
	}
	if _, exists := l.tokenAccounts[ata]; exists {
		if idempotent {
			return nil
		}
		return fmt.Errorf("Provided owner is not allowed")
	}
	if l.lamports[payer] < ataRentLamports {
		return fmt.Errorf("custom program error: 0x1")
	}
	l.lamports[payer] -= ataRentLamports
	l.lamports[ata] += ataRentLamports
	l.owners[ata] = solana.TokenProgramID
	l.tokenAccounts[ata] = &domain.TokenAccount{
		Address: ata,
		Owner:   owner,
		Mint:    mint,
		Amount:  new(big.Int),
	}
	return nil
}

type snapshot struct {
	lamports      map[string]uint64
	mints         map[string]*domain.Mint
	tokenAccounts map[string]*domain.TokenAccount
	owners        map[string]string
}

func (l *Ledger) snapshot() snapshot {
	s := snapshot{
		lamports:      make(map[string]uint64, len(l.lamports)),
		mints:         make(map[string]*domain.Mint, len(l.mints)),
		tokenAccounts: make(map[string]*domain.TokenAccount, len(l.tokenAccounts)),
		owners:        make(map[string]string, len(l.owners)),
	}
	for k, v := range l.lamports {
		s.lamports[k] = v
	}
	for k, v := range l.mints {
		cp := *v
		s.mints[k] = &cp
	}
	for k, v := range l.tokenAccounts {
		cp := *v
		s.tokenAccounts[k] = &cp
	}
	for k, v := range l.owners {
		s.owners[k] = v
	}
	return s
}

func (l *Ledger) restore(s snapshot) {
	l.lamports = s.lamports
	l.mints = s.mints
	l.tokenAccounts = s.tokenAccounts
	l.owners = s.owners
}

// Compile-time interface check
var _ solana.RPCClient = (*Ledger)(nil)
