package utils

import (
	"math/rand"
	"os"

	"github.com/plumeapp/plume/utils/dotenv"
)

// ContainsString returns true iff the provided string slice hay contains string
// needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

// IsProdEnv returns true iff the service runs with production config.
func IsProdEnv() bool {
	return os.Getenv("PLUME_ENV") == dotenv.ProdEnv
}

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// RandomAlphabetString generates a lowercase alphabet-only string of the
// given length, used for temp test database names.
func RandomAlphabetString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
