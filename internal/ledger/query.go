package ledger

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/verimint/internal/runtime"
	"github.com/Klingon-tech/verimint/pkg/pda"
	"github.com/Klingon-tech/verimint/pkg/tx"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// GetMint loads a mint record.
func GetMint(r runtime.AccountReader, addr types.Address) (*Mint, error) {
	acct, err := load(r, addr, KindMint, ErrMintNotFound)
	if err != nil {
		return nil, err
	}
	var m Mint
	if err := acct.Decode(KindMint, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintNotFound, err)
	}
	return &m, nil
}

// GetAccount loads a token account.
func GetAccount(r runtime.AccountReader, addr types.Address) (*TokenAccount, error) {
	acct, err := load(r, addr, KindTokenAccount, ErrAccountNotFound)
	if err != nil {
		return nil, err
	}
	var ta TokenAccount
	if err := acct.Decode(KindTokenAccount, &ta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	}
	return &ta, nil
}

// GetBalance returns a token account's amount.
func GetBalance(r runtime.AccountReader, addr types.Address) (uint64, error) {
	acct, err := GetAccount(r, addr)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// AccountAddress derives the token account address for owner and mint.
func AccountAddress(s pda.Scheme, owner, mint types.Address) (pda.Result, error) {
	return pda.Find(s, accountSeeds(owner, mint), ID)
}

func load(r runtime.AccountReader, addr types.Address, kind string, missing error) (*runtime.Account, error) {
	acct, err := r.Account(addr)
	if err != nil {
		if errors.Is(err, runtime.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", missing, addr)
		}
		return nil, err
	}
	if acct.Owner != ID {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotLedgerAccount, addr, acct.Owner)
	}
	if acct.Kind != kind {
		return nil, fmt.Errorf("%w: %s is a %s", missing, addr, acct.Kind)
	}
	return acct, nil
}

// CreateMintInstruction builds a create_mint instruction. The mint address
// must sign the enclosing transaction or invocation.
func CreateMintInstruction(mint types.Address, decimals uint8, authority types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpCreateMint, CreateMintParams{
		Mint:      mint,
		Decimals:  decimals,
		Authority: authority,
	})
}

// CreateAccountInstruction builds a create_account instruction.
func CreateAccountInstruction(mint, owner types.Address) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpCreateAccount, CreateAccountParams{
		Mint:  mint,
		Owner: owner,
	})
}

// MintToInstruction builds a mint_to instruction. The mint authority must
// be a signer of the invocation.
func MintToInstruction(mint, account types.Address, amount uint64) (tx.Instruction, error) {
	return runtime.NewInstruction(ID, OpMintTo, MintToParams{
		Mint:    mint,
		Account: account,
		Amount:  amount,
	})
}
