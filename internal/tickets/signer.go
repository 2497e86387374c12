package tickets

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// TokenLength is the number of hex characters kept from the MAC.
const TokenLength = 16

// Signer computes and checks ticket verification tokens.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer keyed with secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("ticket signing secret is empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns hex(HMAC-SHA256(secret, "ticketId|userId|eventId|issuedAtMs")) truncated to TokenLength.
func (s *Signer) Sign(ticketID, userID, eventID uuid.UUID, issuedAtMs int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(ticketID.String()))
	mac.Write([]byte{'|'})
	mac.Write([]byte(userID.String()))
	mac.Write([]byte{'|'})
	mac.Write([]byte(eventID.String()))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(issuedAtMs, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:TokenLength]
}

// Verify reports whether token is exactly the token for the given ticket fields.
func (s *Signer) Verify(token string, ticketID, userID, eventID uuid.UUID, issuedAtMs int64) bool {
	if len(token) != TokenLength {
		return false
	}
	want := s.Sign(ticketID, userID, eventID, issuedAtMs)
	return hmac.Equal([]byte(token), []byte(want))
}
