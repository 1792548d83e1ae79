// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2025 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package randutil

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
)

var cryptoRead = cryptorand.Read

// CryptoTokenBytes returns a crypto random token bytes of the given length.
func CryptoTokenBytes(nbytes int) ([]byte, error) {
	b := make([]byte, nbytes)
	if _, err := cryptoRead(b); err != nil {
		return nil, fmt.Errorf("cannot obtain %d crypto random bytes: %v", nbytes, err)
	}
	return b, nil
}

// CryptoHexToken returns a hex encoded crypto random token built from
// nbytes random bytes, the result is 2*nbytes characters long.
func CryptoHexToken(nbytes int) ([]byte, error) {
	b, err := CryptoTokenBytes(nbytes)
	if err != nil {
		return nil, err
	}
	out := make([]byte, hex.EncodedLen(nbytes))
	hex.Encode(out, b)
	clear(b)
	return out, nil
}
