package encrypt

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scrypt 參數 (N=16384, r=8, p=1)，輸出 32 bytes，salt 16 bytes
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	keyLength    = 32
	saltByteSize = 16
)

// 定義錯誤信息
var (
	ErrEmptyPassword    = errors.New("password is empty")
	ErrPasswordMismatch = errors.New("password does not match")
)

// HashPassword 產生隨機 salt 並以 scrypt 推導 hash，皆為 hex 字串
func HashPassword(password string) (salt, hash string, err error) {
	if password == "" {
		return "", "", ErrEmptyPassword
	}

	saltBytes := make([]byte, saltByteSize)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}

	salt = hex.EncodeToString(saltBytes)
	hash, err = deriveHash(password, salt)
	if err != nil {
		return "", "", err
	}
	return salt, hash, nil
}

// CheckPassword 以常數時間比較推導出的 hash
func CheckPassword(salt, hash, password string) error {
	if password == "" {
		return ErrPasswordMismatch
	}

	derived, err := deriveHash(password, salt)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(derived), []byte(hash)) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func deriveHash(password, salt string) (string, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hex.EncodeToString(key), nil
}
