package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	idNode     *snowflake.Node
	idNodeOnce sync.Once
)

// UUIDint64 returns a snowflake int64 identifier.
func UUIDint64() int64 {
	idNodeOnce.Do(func() {
		var err error
		idNode, err = snowflake.NewNode(1)
		if err != nil {
			panic(fmt.Sprintf("snowflake init: %v", err))
		}
	})
	return idNode.Generate().Int64()
}

// UUID returns a snowflake identifier as a string.
func UUID() string {
	UUIDint64()
	return idNode.Generate().String()
}

// GetSecretSalt reads the process-wide password salt, falling back to a
// built-in value when the environment does not provide one.
func GetSecretSalt() string {
	if s := os.Getenv("STOCKPILE_SECRET_SALT"); s != "" {
		return s
	}
	return "stockpile-default-salt"
}

// Sha256HashWithSalt hashes src with the given salt.
func Sha256HashWithSalt(src, salt string) string {
	h := sha256.New()
	h.Write([]byte(src + salt))
	return hex.EncodeToString(h.Sum(nil))
}

// RandomHex returns n random bytes hex-encoded.
func RandomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// IfEmptyStr returns defval when src is empty.
func IfEmptyStr(src, defval string) string {
	if src == "" {
		return defval
	}
	return src
}
