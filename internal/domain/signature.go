package domain

// WalletSignature is the transient proof produced by the wallet. It is handed
// to exactly one API call and then dropped.
type WalletSignature struct {
	Account   string
	Message   string
	Signature string
}

// Payload builds the request body sent alongside contract signing and
// handover approvals. imageURL may be empty.
func (s *WalletSignature) Payload(imageURL string) SignaturePayload {
	return SignaturePayload{
		Signature:    s.Signature,
		Message:      s.Message,
		Address:      s.Account,
		SignatureURL: imageURL,
	}
}

type SignaturePayload struct {
	Signature    string `json:"signature"`
	Message      string `json:"message"`
	Address      string `json:"address"`
	SignatureURL string `json:"signature_url,omitempty"`
}

// RenderedDocument is a filled template ready to be saved.
type RenderedDocument struct {
	Filename string
	Data     []byte
}
