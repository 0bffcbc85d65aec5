package transport

import proto "github.com/ystepanoff/nrfpair/protocol"

// ExportConfig serialises the engine's identity and peer table to the JSON
// configuration document format (protocol.ExportJSON).
func (e *Engine) ExportConfig(includeKeys bool) (string, error) {
	return proto.ExportJSON(e.table, e.ownPub, e.ownPriv, includeKeys)
}

// ImportConfig loads a previously exported configuration document into the
// engine's peer table and, if present, the personal keypair.
func (e *Engine) ImportConfig(doc string) error {
	pub, priv, err := proto.ImportJSON(e.table, doc)
	if err != nil {
		return err
	}
	if pub != ([proto.SharedKeySize]byte{}) {
		e.ownPub = pub
	}
	if priv != ([proto.SharedKeySize]byte{}) {
		e.ownPriv = priv
	}
	return nil
}
