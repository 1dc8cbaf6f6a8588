/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 tuning, fixed rather than configurable: this is a chat server's
// connection-time password check, not a high-value vault, so moderate
// cost keeps registration latency reasonable under load.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// HashPassword returns an encoded argon2id hash suitable for storage in
// config files or the persistence layer (operator/nick/global passwords).
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	encoded := strings.Join([]string{
		"argon2id",
		hex.EncodeToString(salt),
		hex.EncodeToString(hash),
	}, "$")
	return encoded, nil
}

// VerifyPassword checks password against an argon2id hash produced by
// HashPassword. Returns false (never an error) for malformed hashes so
// callers can treat "bad config" and "wrong password" identically.
func VerifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return false
	}

	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// ErrBadHashFormat describes a stored hash that isn't a 32-character hex
// digest. VerifyMD5Password does not return it; it reports that case as
// a plain false.
var ErrBadHashFormat = errors.New("password: stored hash is not a valid hex md5 digest")

// HashMD5Password hex-encodes the MD5 digest of password, for DIGEST-MD5
// SASL verification (§4.H) against legacy-imported credential stores.
func HashMD5Password(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyMD5Password compares password's MD5 digest against a stored hex
// digest in constant time.
func VerifyMD5Password(password, storedHex string) bool {
	want, err := hex.DecodeString(storedHex)
	if err != nil || len(want) != md5.Size {
		return false
	}
	sum := md5.Sum([]byte(password))
	return subtle.ConstantTimeCompare(sum[:], want) == 1
}
