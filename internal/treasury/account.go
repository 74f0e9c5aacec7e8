package treasury

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// ErrBadSecret indicates the custody secret is neither a valid private key
// nor a valid recovery phrase.
var ErrBadSecret = errors.New("invalid treasury secret")

// mnemonicMinWords is the classification threshold: twelve or more
// space-separated tokens are treated as a BIP-39 recovery phrase, anything
// shorter as a raw hex private key.
const mnemonicMinWords = 12

// BIP-44 derivation path for the first Ethereum-style account,
// m/44'/60'/0'/0/0.
var derivationPath = []uint32{
	44 + hdkeychain.HardenedKeyStart,
	60 + hdkeychain.HardenedKeyStart,
	hdkeychain.HardenedKeyStart,
	0,
	0,
}

// Account is the custody account that funds payouts. The private key lives
// only in memory and is never logged or serialized.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewAccount classifies the secret material once and derives the custody
// account from it. Commas in recovery phrases are tolerated and normalized
// to spaces.
func NewAccount(secret string) (*Account, error) {
	normalized := strings.Join(strings.Fields(strings.ReplaceAll(secret, ",", " ")), " ")
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrBadSecret)
	}

	var (
		key *ecdsa.PrivateKey
		err error
	)
	if len(strings.Fields(normalized)) >= mnemonicMinWords {
		key, err = keyFromMnemonic(normalized)
	} else {
		key, err = keyFromHex(normalized)
	}
	if err != nil {
		return nil, err
	}

	return &Account{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the custody account address.
func (a *Account) Address() common.Address {
	return a.address
}

// String renders only the public address, keeping the key out of logs.
func (a *Account) String() string {
	return a.address.Hex()
}

func keyFromHex(secret string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSecret, err)
	}
	return key, nil
}

func keyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: malformed recovery phrase", ErrBadSecret)
	}

	seed := bip39.NewSeed(mnemonic, "")
	extended, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSecret, err)
	}
	for _, index := range derivationPath {
		extended, err = extended.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("%w: derive path: %v", ErrBadSecret, err)
		}
	}

	priv, err := extended.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSecret, err)
	}
	return priv.ToECDSA(), nil
}
