// Package tx defines signed transactions: an ordered list of program
// instructions executed atomically by the runtime.
package tx

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/Klingon-tech/verimint/pkg/crypto"
	"github.com/Klingon-tech/verimint/pkg/types"
)

// Transaction is a batch of instructions authorized by a set of signatures.
type Transaction struct {
	Version      uint32        `json:"version"`
	Nonce        uint64        `json:"nonce"`
	Instructions []Instruction `json:"instructions"`
	Signatures   []Signature   `json:"signatures"`
}

// Instruction targets one program with opaque, program-defined data.
type Instruction struct {
	Program types.Address `json:"program"`
	Data    []byte        `json:"data"`
}

// Signature binds a signer's x-only public key to the transaction hash.
type Signature struct {
	PubKey    []byte `json:"pubkey"`
	Signature []byte `json:"signature"`
}

// instructionJSON carries Data as a raw JSON document when it is one,
// and as hex otherwise, so RPC payloads stay readable.
type instructionJSON struct {
	Program types.Address   `json:"program"`
	Data    json.RawMessage `json:"data,omitempty"`
	DataHex string          `json:"data_hex,omitempty"`
}

// MarshalJSON encodes the instruction. Data is embedded as JSON only when
// encoding/json would reproduce it byte for byte; anything else travels as
// data_hex so that decoding yields the signed bytes.
func (ix Instruction) MarshalJSON() ([]byte, error) {
	j := instructionJSON{Program: ix.Program}
	if canonicalJSON(ix.Data) {
		j.Data = json.RawMessage(ix.Data)
	} else if len(ix.Data) > 0 {
		j.DataHex = hex.EncodeToString(ix.Data)
	}
	return json.Marshal(j)
}

// canonicalJSON reports whether b is valid JSON that survives re-encoding
// unchanged: already compact and free of the characters the encoder
// escapes.
func canonicalJSON(b []byte) bool {
	if !json.Valid(b) || bytes.Equal(b, []byte("null")) {
		return false
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return false
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compact.Bytes())
	return bytes.Equal(escaped.Bytes(), b)
}

// UnmarshalJSON decodes an instruction.
func (ix *Instruction) UnmarshalJSON(data []byte) error {
	var j instructionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	ix.Program = j.Program
	ix.Data = nil
	if len(j.Data) > 0 {
		ix.Data = append([]byte(nil), j.Data...)
	}
	if j.DataHex != "" {
		b, err := hex.DecodeString(j.DataHex)
		if err != nil {
			return err
		}
		ix.Data = b
	}
	return nil
}

// signatureJSON is the JSON representation of Signature with hex fields.
type signatureJSON struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// MarshalJSON encodes the signature with hex-encoded fields.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{
		PubKey:    hex.EncodeToString(s.PubKey),
		Signature: hex.EncodeToString(s.Signature),
	})
}

// UnmarshalJSON decodes a signature with hex-encoded fields.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var j signatureJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	pub, err := hex.DecodeString(j.PubKey)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return err
	}
	s.PubKey = pub
	s.Signature = sig
	return nil
}

// Signer returns the address of the signing account.
func (s Signature) Signer() types.Address {
	var a types.Address
	copy(a[:], s.PubKey)
	return a
}

// Hash computes the transaction ID (BLAKE3 hash of the signing bytes).
// Signatures are excluded.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.SigningBytes())
}

// SigningBytes returns the canonical byte representation used for signing.
// Format: version(4) | nonce(8) | ix_count(4) | [program(32) + data_len(4) + data]...
func (tx *Transaction) SigningBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Nonce)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Instructions)))
	for _, ix := range tx.Instructions {
		buf = append(buf, ix.Program[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ix.Data)))
		buf = append(buf, ix.Data...)
	}

	return buf
}

// Signers returns the addresses of all signatures in order.
func (tx *Transaction) Signers() []types.Address {
	out := make([]types.Address, len(tx.Signatures))
	for i, s := range tx.Signatures {
		out[i] = s.Signer()
	}
	return out
}
