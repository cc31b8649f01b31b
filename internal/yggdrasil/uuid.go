package yggdrasil

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const unsignedUuidLength = 32

// ToUnsigned renders id as 32 lowercase hex digits without separators,
// which is the form used on the Yggdrasil wire
func ToUnsigned(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}

// FromUnsigned parses the unsigned form. The hyphenated form is accepted as well,
// since some providers don't follow the protocol strictly
func FromUnsigned(text string) (uuid.UUID, error) {
	stripped := strings.ReplaceAll(text, "-", "")
	if len(stripped) != unsignedUuidLength {
		return uuid.Nil, &MalformedIdentifierError{Value: text, Reason: "must contain exactly 32 hex digits"}
	}

	id, err := uuid.Parse(stripped)
	if err != nil {
		return uuid.Nil, &MalformedIdentifierError{Value: text, Reason: err.Error()}
	}

	return id, nil
}
