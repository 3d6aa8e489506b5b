package protocol

import (
	"crypto/rand"
	"math/big"
)

const (
	RoomIDLength   = 7
	roomIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewRoomID returns a random upper-case base36 room id.
func NewRoomID() (string, error) {
	max := big.NewInt(int64(len(roomIDAlphabet)))
	b := make([]byte, RoomIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = roomIDAlphabet[n.Int64()]
	}
	return string(b), nil
}
