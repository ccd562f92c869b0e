package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
)

// MaxCodeAttempts bounds the collision retry loop. With 62^6 codes a
// second attempt is already rare.
const MaxCodeAttempts = 10

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator draws random base62 codes that are not yet stored
type CodeGenerator struct {
	repo   ports.LinkRepository
	random func(length int) (string, error)
}

func NewCodeGenerator(repo ports.LinkRepository) *CodeGenerator {
	return &CodeGenerator{repo: repo, random: generateShortCode}
}

// GenerateUnique returns a code unused by any link, deleted links included.
func (g *CodeGenerator) GenerateUnique(ctx context.Context) (string, error) {
	for i := 0; i < MaxCodeAttempts; i++ {
		code, err := g.random(domain.CodeLength)
		if err != nil {
			return "", err
		}

		exists, err := g.repo.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrCodeSpaceExhausted, MaxCodeAttempts)
}

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
