package pkg

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CodeAlphabet holds the 37 symbols invite codes are drawn from.
const CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_"

// CodeLength is the length of an invite code.
const CodeLength = 6

// Random is the single randomness source used for coin flips, code generation and the easiest bot level.
type Random interface {
	// Intn returns a value in [0, n). n must be positive.
	Intn(n int) int
}

type cryptoRandom struct {
	mu       sync.Mutex
	fallback *mathrand.Rand
}

// NewRandom returns a crypto/rand backed source that falls back to math/rand when the system source fails.
func NewRandom() Random {
	return &cryptoRandom{
		fallback: mathrand.New(mathrand.NewSource(time.Now().UnixNano())), //nolint: gosec // fallback only
	}
}

func (that *cryptoRandom) Intn(n int) int {
	value, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err == nil {
		return int(value.Int64())
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return that.fallback.Intn(n)
}

type seededRandom struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeededRandom returns a deterministic source, intended for tests.
func NewSeededRandom(seed int64) Random {
	return &seededRandom{rng: mathrand.New(mathrand.NewSource(seed))} //nolint: gosec // deterministic on purpose
}

func (that *seededRandom) Intn(n int) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rng.Intn(n)
}

// CoinFlip reports heads with probability one half.
func CoinFlip(random Random) bool {
	return random.Intn(2) == 0
}

// GenerateRoomID - generates a unique identifier for the room.
func GenerateRoomID() string {
	return uuid.NewString()
}

// GenerateCode - generates an invite code over CodeAlphabet.
func GenerateCode(random Random) string {
	var b strings.Builder
	b.Grow(CodeLength)

	for range CodeLength {
		b.WriteByte(CodeAlphabet[random.Intn(len(CodeAlphabet))])
	}

	return b.String()
}

// NormalizeCode upper-cases and trims user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode checks the format of an already normalized code.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}

	for i := range len(code) {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}

	return true
}

// GenerateNewSessionID - generates an opaque owner token for locks.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
