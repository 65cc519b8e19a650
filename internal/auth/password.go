package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"

	"github.com/hnrobert/lumgreet/internal/accounts"
	"github.com/hnrobert/lumgreet/internal/hostfs"
	"github.com/hnrobert/lumgreet/internal/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLocked         = errors.New("user is locked")
	ErrUnsupportedHash    = errors.New("unsupported password hash")
)

// suVerify is replaced in tests.
var suVerify = verifyWithSu

func shadowEntry(username string) (*accounts.ShadowEntry, error) {
	path, err := hostfs.Path(hostfs.EtcShadowRel)
	if err != nil {
		return nil, err
	}
	sh, err := accounts.LoadShadow(path)
	if err != nil {
		return nil, err
	}
	se := sh.Find(username)
	if se == nil {
		return nil, ErrInvalidCredentials
	}
	return se, nil
}

// PasswordRequired reports whether username must answer a password prompt.
// Accounts with an empty shadow hash log in without one. When the shadow
// file cannot be read (an unprivileged --test run) a password is assumed.
func PasswordRequired(username string) (bool, error) {
	se, err := shadowEntry(username)
	switch {
	case errors.Is(err, os.ErrPermission):
		return true, nil
	case err != nil:
		return false, err
	case se.Locked():
		return false, ErrUserLocked
	}
	return !se.Passwordless(), nil
}

// VerifyPassword checks password against the shadow hash of username.
func VerifyPassword(username, password string) error {
	se, err := shadowEntry(username)
	if errors.Is(err, os.ErrPermission) {
		logger.Debug("shadow unreadable, verifying %s with su", username)
		return verifySu(username, password)
	}
	if err != nil {
		return err
	}
	if se.Locked() {
		return ErrUserLocked
	}
	if se.Passwordless() {
		return nil
	}
	ok, err := verifyCrypt(se.Hash, password)
	if errors.Is(err, ErrUnsupportedHash) {
		logger.Debug("%s has an unsupported hash, verifying with su", username)
		return verifySu(username, password)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func verifySu(username, password string) error {
	ok, err := suVerify(username, password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func verifyCrypt(hash, password string) (bool, error) {
	var c crypt.Crypter
	switch {
	case strings.HasPrefix(hash, "$6$"):
		c = sha512_crypt.New()
	case strings.HasPrefix(hash, "$5$"):
		c = sha256_crypt.New()
	case strings.HasPrefix(hash, "$1$"):
		c = md5_crypt.New()
	default:
		// yescrypt ($y$), scrypt ($7$), bcrypt ($2*$) and legacy DES.
		return false, ErrUnsupportedHash
	}
	return c.Verify(hash, []byte(password)) == nil, nil
}

// HumanAuthError is the message shown for a failed local check.
func HumanAuthError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrUserLocked):
		return "This account is locked."
	case errors.Is(err, ErrAuthBackend):
		return "System authentication is unavailable."
	default:
		return fmt.Sprintf("Authentication failed: %v", err)
	}
}
