package protocol

import (
	"encoding/base64"
	"encoding/json"
)

// pairedDevicesDoc is the nested-object form of the "pairedDevices" field.
// Import also accepts this same shape JSON-encoded as a string; export
// always emits the nested-object form.
type pairedDevicesDoc struct {
	Addr   [NumSlots]string `json:"addr"`
	PubKey []string         `json:"pubKey,omitempty"`
}

type personalKeysDoc struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// configDoc is the outer shape. PairedDevices is json.RawMessage so that
// import can accept either a nested object or a JSON-encoded string.
type configDoc struct {
	PairedDevices json.RawMessage `json:"pairedDevices"`
	PersonalKeys  personalKeysDoc `json:"personalKeys"`
}

// ExportJSON serialises the table (and, if includeKeys, each slot's peer
// public key) plus the local keypair into the configuration document
// described in spec.md §6.
func ExportJSON(t *PeerTable, pub, priv [SharedKeySize]byte, includeKeys bool) (string, error) {
	doc := pairedDevicesDoc{}
	if includeKeys {
		doc.PubKey = make([]string, NumSlots)
	}
	for i := 0; i < NumSlots; i++ {
		s := t.Slot(i)
		if s.Empty() {
			doc.Addr[i] = "0"
			if includeKeys {
				doc.PubKey[i] = ""
			}
			continue
		}
		doc.Addr[i] = s.Address
		if includeKeys {
			if s.HasKey() {
				doc.PubKey[i] = base64.StdEncoding.EncodeToString(s.PeerPubKey[:])
			} else {
				doc.PubKey[i] = ""
			}
		}
	}

	nested, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	out := configDoc{
		PairedDevices: nested,
		PersonalKeys: personalKeysDoc{
			PublicKey:  base64.StdEncoding.EncodeToString(pub[:]),
			PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
		},
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ImportJSON parses a configuration document and applies Assign /
// AssignAddressOnly / Clear to each slot of t, and returns the decoded
// local keypair. The slot index in the document is canonical.
//
// pairedDevices may be nested either as a JSON object or as a
// JSON-encoded string; both forms are accepted.
func ImportJSON(t *PeerTable, s string) (pub, priv [SharedKeySize]byte, err error) {
	var outer configDoc
	if err = json.Unmarshal([]byte(s), &outer); err != nil {
		return pub, priv, err
	}

	var inner pairedDevicesDoc
	if unmarshalErr := json.Unmarshal(outer.PairedDevices, &inner); unmarshalErr != nil {
		// Not a nested object; try the JSON-encoded-string form.
		var asString string
		if err = json.Unmarshal(outer.PairedDevices, &asString); err != nil {
			return pub, priv, err
		}
		if err = json.Unmarshal([]byte(asString), &inner); err != nil {
			return pub, priv, err
		}
	}

	pubBytes, err := base64.StdEncoding.DecodeString(outer.PersonalKeys.PublicKey)
	if err != nil {
		return pub, priv, err
	}
	privBytes, err := base64.StdEncoding.DecodeString(outer.PersonalKeys.PrivateKey)
	if err != nil {
		return pub, priv, err
	}
	copy(pub[:], pubBytes)
	copy(priv[:], privBytes)

	// The table must derive re-assigned peers' shared keys against the
	// keypair this document carries, not whatever private key it was
	// constructed with. A document without a private key leaves the
	// table's key as it was.
	if priv != ([SharedKeySize]byte{}) {
		t.SetOwnPriv(priv)
	}

	for i := 0; i < NumSlots; i++ {
		addr := inner.Addr[i]
		if addr == "" || addr == "0" {
			_ = t.Clear(i)
			continue
		}

		var keyB64 string
		if i < len(inner.PubKey) {
			keyB64 = inner.PubKey[i]
		}

		if keyB64 == "" {
			_ = t.AssignAddressOnly(i, addr)
			continue
		}

		keyBytes, decErr := base64.StdEncoding.DecodeString(keyB64)
		if decErr != nil || len(keyBytes) != SharedKeySize {
			_ = t.AssignAddressOnly(i, addr)
			continue
		}
		var peerPub [SharedKeySize]byte
		copy(peerPub[:], keyBytes)
		if assignErr := t.Assign(i, addr, peerPub); assignErr != nil {
			return pub, priv, assignErr
		}
	}

	return pub, priv, nil
}
