package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikoaf/appleble/continuity"
)

func TestRecordViewPointer(t *testing.T) {
	var key [continuity.PublicKeyLen]byte
	for i := range key {
		key[i] = 0x88
	}
	fm := continuity.FindMy{PublicKey: key}
	assert.Equal(t, recordView(fm), recordView(&fm))
	assert.Equal(t, strings.Repeat("88", continuity.PublicKeyLen), recordView(&fm)["public_key"])

	p := &continuity.AirPrint{Port: 631, Power: 7}
	v := recordView(p)
	assert.Equal(t, continuity.KindAirPrint, v["kind"])
	assert.Equal(t, uint16(631), v["port"])
	assert.Equal(t, uint8(7), v["power"])

	assert.Nil(t, recordView((*continuity.AirDrop)(nil)))
}
