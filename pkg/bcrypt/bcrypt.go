package bcrypt

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch means the secret does not match the hash. Any other error
// from Compare means the hash itself is unusable.
var ErrMismatch = errors.New("secret does not match hash")

type IBcrypt interface {
	Hash(secret string) (string, error)
	Compare(hash string, secret string) error
}

type bcryptService struct {
	cost int
}

func New() IBcrypt {
	return NewWithCost(bcrypt.DefaultCost)
}

// NewWithCost is meant for tests; bcrypt.MinCost keeps hashing fast.
func NewWithCost(cost int) IBcrypt {
	return &bcryptService{cost: cost}
}

func (b *bcryptService) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (b *bcryptService) Compare(hash string, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
