package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltChars         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultIterations = 600000
	DefaultSaltLength = 8
)

// Hasher produces salted PBKDF2-HMAC-SHA256 hashes in the
// "pbkdf2:sha256:<iterations>$<salt>$<hex digest>" format.
type Hasher struct {
	Iterations int
	SaltLength int
}

func NewHasher(iterations, saltLength int) *Hasher {
	if iterations < 1 {
		iterations = DefaultIterations
	}
	if saltLength < 1 {
		saltLength = DefaultSaltLength
	}
	return &Hasher{Iterations: iterations, SaltLength: saltLength}
}

func (h *Hasher) Hash(password string) (string, error) {
	salt, err := genSalt(h.SaltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	digest := derive(password, salt, h.Iterations)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", h.Iterations, salt, digest), nil
}

// Verify reports whether password matches hashed. Malformed or unknown hashes never match.
// bcrypt hashes are accepted so accounts imported from bcrypt-based systems can still log in.
func (h *Hasher) Verify(hashed, password string) bool {
	if strings.HasPrefix(hashed, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
	}

	parts := strings.SplitN(hashed, "$", 3)
	if len(parts) != 3 {
		return false
	}
	method, salt, want := parts[0], parts[1], parts[2]

	fields := strings.Split(method, ":")
	if len(fields) != 3 || fields[0] != "pbkdf2" || fields[1] != "sha256" {
		return false
	}
	iterations, err := strconv.Atoi(fields[2])
	if err != nil || iterations < 1 {
		return false
	}
	if _, err := hex.DecodeString(want); err != nil {
		return false
	}

	got := derive(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func derive(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}

func genSalt(length int) (string, error) {
	max := big.NewInt(int64(len(saltChars)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(saltChars[n.Int64()])
	}
	return b.String(), nil
}
