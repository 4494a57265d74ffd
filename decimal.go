// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package slimgraph

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const maxDecimalScale = 28

var (
	decimalMask32 = big.NewInt(0xffffffff)
	decimalLimit  = new(big.Int).Lsh(big.NewInt(1), 96)
)

// decimalToWords splits d into a 96-bit unsigned coefficient and a sign/scale byte.
func decimalToWords(d decimal.Decimal) ([3]uint32, byte, error) {
	var words [3]uint32
	if exp := d.Exponent(); exp < -maxDecimalScale {
		d = d.Round(maxDecimalScale)
	}
	coef := d.Coefficient()
	exp := d.Exponent()
	if exp > 0 {
		coef.Mul(coef, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
		exp = 0
	}
	neg := coef.Sign() < 0
	coef.Abs(coef)
	if coef.Cmp(decimalLimit) >= 0 {
		return words, 0, errors.Errorf("decimal %s does not fit in 96 bits", d.String())
	}
	var part big.Int
	for i := range words {
		part.And(coef, decimalMask32)
		words[i] = uint32(part.Uint64())
		coef.Rsh(coef, 32)
	}
	flags := byte(-exp)
	if neg {
		flags |= 0x80
	}
	return words, flags, nil
}

func wordsToDecimal(words [3]uint32, flags byte) (decimal.Decimal, error) {
	scale := int32(flags & 0x7f)
	if scale > maxDecimalScale {
		return decimal.Zero, corruptf("decimal scale %d out of range", scale)
	}
	coef := new(big.Int).SetUint64(uint64(words[2]))
	coef.Lsh(coef, 32).Or(coef, new(big.Int).SetUint64(uint64(words[1])))
	coef.Lsh(coef, 32).Or(coef, new(big.Int).SetUint64(uint64(words[0])))
	if flags&0x80 != 0 {
		coef.Neg(coef)
	}
	return decimal.NewFromBigInt(coef, -scale), nil
}
