package core

// BuildTransfer assembles a one-shot offline transfer: select input
// CashNotes, build the balanced Transaction, sign a Spend per input with
// its derived one-time key, and mint the recipient (and optional change)
// CashNote. Grounded on wallet.go's SignTx orchestration (account/index
// derivation, then per-input signing) generalized from a single HD chain
// to per-CashNote unique keys, and on sn_transfers' offline transfer flow
// where the sender hands the recipient their new CashNote directly instead
// of the network routing it.

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeCashNoteRLP canonically encodes a CashNote for out-of-band transfer.
func EncodeCashNoteRLP(cn CashNote) ([]byte, error) {
	b, err := rlp.EncodeToBytes(cn)
	if err != nil {
		return nil, fmt.Errorf("encode cash note: %w", err)
	}
	return b, nil
}

// DecodeCashNoteRLP decodes a CashNote previously produced by EncodeCashNoteRLP.
func DecodeCashNoteRLP(raw []byte, cn *CashNote) error {
	if err := rlp.DecodeBytes(raw, cn); err != nil {
		return fmt.Errorf("decode cash note: %w", err)
	}
	return nil
}

// BuildTransfer spends enough of ws's available CashNotes to pay amount to
// recipient, returning the CashNote to hand the recipient, the wallet's own
// change CashNote (nil if the inputs summed exactly to amount), and the
// SignedSpend for every consumed input, ready to publish to the network.
func BuildTransfer(msk MainSecretKey, ws *WalletStore, recipient MainPubkey, amount uint64) (CashNote, *CashNote, []SignedSpend, error) {
	owner, err := msk.PublicKey()
	if err != nil {
		return CashNote{}, nil, nil, err
	}

	available, err := ws.AvailableCashNotes()
	if err != nil {
		return CashNote{}, nil, nil, err
	}
	sort.Slice(available, func(i, j int) bool {
		vi, _ := available[i].Value()
		vj, _ := available[j].Value()
		return vi > vj
	})

	var chosen []CashNote
	var total uint64
	for _, cn := range available {
		if total >= amount {
			break
		}
		v, err := cn.Value()
		if err != nil {
			return CashNote{}, nil, nil, err
		}
		chosen = append(chosen, cn)
		total += v
	}
	if total < amount {
		return CashNote{}, nil, nil, fmt.Errorf("insufficient balance: have %d, need %d", total, amount)
	}

	recipientIdx, err := RandomDerivationIndex()
	if err != nil {
		return CashNote{}, nil, nil, err
	}
	recipientUnique, err := DeriveUniquePubkey(recipient, recipientIdx)
	if err != nil {
		return CashNote{}, nil, nil, err
	}

	tx := Transaction{Outputs: []Output{{UniquePubkey: recipientUnique, Amount: amount}}}
	for _, cn := range chosen {
		v, _ := cn.Value()
		tx.Inputs = append(tx.Inputs, Input{UniquePubkey: cn.UniquePubkey, Amount: v})
	}

	var changeIdx DerivationIndex
	change := total - amount
	if change > 0 {
		changeIdx, err = RandomDerivationIndex()
		if err != nil {
			return CashNote{}, nil, nil, err
		}
		changeUnique, err := DeriveUniquePubkey(owner, changeIdx)
		if err != nil {
			return CashNote{}, nil, nil, err
		}
		tx.Outputs = append(tx.Outputs, Output{UniquePubkey: changeUnique, Amount: change})
	}

	signed := make([]SignedSpend, 0, len(chosen))
	for _, cn := range chosen {
		priv, err := DeriveUniqueKeypair(msk, cn.DerivationIndex)
		if err != nil {
			return CashNote{}, nil, nil, fmt.Errorf("derive input key: %w", err)
		}
		v, _ := cn.Value()
		spend := Spend{
			UniquePubkey: cn.UniquePubkey,
			Amount:       v,
			ParentTx:     cn.ParentTx,
			SpentTx:      tx,
		}
		ss, err := SignSpend(priv, spend)
		if err != nil {
			return CashNote{}, nil, nil, fmt.Errorf("sign spend: %w", err)
		}
		signed = append(signed, ss)
	}

	outCN := CashNote{
		UniquePubkey:    recipientUnique,
		MainPubkey:      recipient,
		DerivationIndex: recipientIdx,
		ParentTx:        tx,
		ParentSpends:    signed,
	}

	var changeCN *CashNote
	if change > 0 {
		changeUnique, _ := DeriveUniquePubkey(owner, changeIdx)
		changeCN = &CashNote{
			UniquePubkey:    changeUnique,
			MainPubkey:      owner,
			DerivationIndex: changeIdx,
			ParentTx:        tx,
			ParentSpends:    signed,
		}
	}

	return outCN, changeCN, signed, nil
}
