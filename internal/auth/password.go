package auth

import (
	"sync"

	"github.com/alexedwards/argon2id"
)

var DefaultPasswordParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// MinPasswordLength applies to passwords set through the CLI.
const MinPasswordLength = 12

func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, DefaultPasswordParams)
}

func ComparePassword(password, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, hash)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// CompareDummy spends the same work as a real comparison. It is used when no
// user matches so unknown emails take as long as wrong passwords.
func CompareDummy(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("open-cbom-dummy-password")
	})
	if dummyHash != "" {
		_, _ = ComparePassword(password, dummyHash)
	}
}
