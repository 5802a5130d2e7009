package pdf

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"

	"pdf-workbench/internal/domain"
)

// Standard security handler, revision 3 (RC4, 128-bit keys). The legacy
// primitives (MD5, RC4) are what the format prescribes for this revision.

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

const fileKeyLength = 16 // 128-bit

func padPassword(password string) []byte {
	out := make([]byte, 32)
	n := copy(out, []byte(password))
	copy(out[n:], passwordPad)
	return out
}

func rc4Apply(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return append([]byte(nil), data...)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// ownerKey derives the RC4 key used to produce and recover the /O value.
func ownerKey(ownerPassword string) []byte {
	sum := md5.Sum(padPassword(ownerPassword))
	for i := 0; i < 50; i++ {
		sum = md5.Sum(sum[:fileKeyLength])
	}
	return sum[:fileKeyLength]
}

// computeOwnerHash computes the /O entry from the owner and user passwords.
func computeOwnerHash(ownerPassword, userPassword string) []byte {
	key := ownerKey(ownerPassword)
	out := rc4Apply(key, padPassword(userPassword))
	iter := make([]byte, len(key))
	for i := 1; i <= 19; i++ {
		for k := range key {
			iter[k] = key[k] ^ byte(i)
		}
		out = rc4Apply(iter, out)
	}
	return out
}

// computeFileKey derives the global encryption key from the user password
// and the recorded encryption values.
func computeFileKey(userPassword string, ownerHash []byte, permissions int32, id []byte) []byte {
	h := md5.New()
	h.Write(padPassword(userPassword))
	h.Write(ownerHash)
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], uint32(permissions))
	h.Write(p[:])
	h.Write(id)
	sum := h.Sum(nil)
	for i := 0; i < 50; i++ {
		s := md5.Sum(sum[:fileKeyLength])
		sum = s[:]
	}
	return sum[:fileKeyLength]
}

// computeUserHash computes the /U entry for revision 3.
func computeUserHash(fileKey, id []byte) []byte {
	h := md5.New()
	h.Write(passwordPad)
	h.Write(id)
	out := rc4Apply(fileKey, h.Sum(nil))
	iter := make([]byte, len(fileKey))
	for i := 1; i <= 19; i++ {
		for k := range fileKey {
			iter[k] = fileKey[k] ^ byte(i)
		}
		out = rc4Apply(iter, out)
	}
	// the remaining 16 bytes of /U are arbitrary padding
	return append(out, make([]byte, 32-len(out))...)
}

// NewEncryptionState builds the full encryption state for a document being
// protected. id is the first element of the file identifier.
func NewEncryptionState(userPassword, ownerPassword string, permissions int32, id []byte) *domain.EncryptionState {
	if ownerPassword == "" {
		ownerPassword = userPassword
	}
	ownerHash := computeOwnerHash(ownerPassword, userPassword)
	fileKey := computeFileKey(userPassword, ownerHash, permissions, id)
	return &domain.EncryptionState{
		OwnerHash:   ownerHash,
		UserHash:    computeUserHash(fileKey, id),
		Permissions: permissions,
		Revision:    3,
		Key:         fileKey,
		ID:          append([]byte(nil), id...),
	}
}

// VerifyUserPassword checks a candidate user password against the recorded
// /U value and returns the file key when it matches.
func VerifyUserPassword(state *domain.EncryptionState, password string, id []byte) ([]byte, bool) {
	fileKey := computeFileKey(password, state.OwnerHash, state.Permissions, id)
	candidate := computeUserHash(fileKey, id)
	if len(state.UserHash) >= fileKeyLength && bytes.Equal(candidate[:fileKeyLength], state.UserHash[:fileKeyLength]) {
		return fileKey, true
	}
	return nil, false
}

// VerifyOwnerPassword checks a candidate owner password by recovering the
// user password from /O and re-running user verification.
func VerifyOwnerPassword(state *domain.EncryptionState, password string, id []byte) ([]byte, bool) {
	key := ownerKey(password)
	user := append([]byte(nil), state.OwnerHash...)
	iter := make([]byte, len(key))
	for i := 19; i >= 0; i-- {
		for k := range key {
			iter[k] = key[k] ^ byte(i)
		}
		user = rc4Apply(iter, user)
	}
	// user now holds the padded user password
	return VerifyUserPassword(state, string(unpadPassword(user)), id)
}

func unpadPassword(padded []byte) []byte {
	if idx := bytes.Index(padded, passwordPad); idx >= 0 {
		return padded[:idx]
	}
	return padded
}

// objectKey derives the per-object RC4 key for object num/gen.
func objectKey(fileKey []byte, num, gen int) []byte {
	h := md5.New()
	h.Write(fileKey)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16)})
	h.Write([]byte{byte(gen), byte(gen >> 8)})
	sum := h.Sum(nil)
	n := len(fileKey) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

// cryptObject applies RC4 to every string and stream payload in an object
// graph with the per-object key. RC4 is symmetric, so the same walk both
// encrypts and decrypts.
func cryptObject(fileKey []byte, obj Object, num, gen int) Object {
	key := objectKey(fileKey, num, gen)
	return cryptValue(key, obj)
}

func cryptValue(key []byte, obj Object) Object {
	switch v := obj.(type) {
	case StringObject:
		return StringObject(rc4Apply(key, []byte(v)))
	case HexStringObject:
		return HexStringObject(rc4Apply(key, []byte(v)))
	case ArrayObject:
		out := make(ArrayObject, len(v))
		for i, item := range v {
			out[i] = cryptValue(key, item)
		}
		return out
	case DictionaryObject:
		out := make(DictionaryObject, len(v))
		for k, item := range v {
			out[k] = cryptValue(key, item)
		}
		return out
	case *StreamObject:
		return &StreamObject{
			Dictionary: cryptValue(key, v.Dictionary).(DictionaryObject),
			Data:       rc4Apply(key, v.Data),
		}
	default:
		return obj
	}
}
