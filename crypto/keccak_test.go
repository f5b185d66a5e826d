package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const emptyKeccak = "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"

func TestKeccak256Vectors(t *testing.T) {
	tests := []struct {
		name  string
		input [][]byte
		want  string
	}{
		{"no args", nil, emptyKeccak},
		{"nil", [][]byte{nil}, emptyKeccak},
		{"empty", [][]byte{{}}, emptyKeccak},
		{"hello", [][]byte{[]byte("hello")}, "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"},
		{"0x00", [][]byte{{0x00}}, "bc36789e7a1e281436464229828f817d6612f7b477d66591ff96a9e064bcc98a"},
		{"0x01", [][]byte{{0x01}}, "5fe7f977e71dba2ea1a68e21057beebb9be2ac30c6410aa38d4f3fbe41dcffd2"},
		{"0xff", [][]byte{{0xff}}, "8b1a944cf13a9a1c08facb2c9e98623ef3254d2ddb48113885c3e8e97fec8db9"},
	}
	for _, tt := range tests {
		got := hex.EncodeToString(Keccak256(tt.input...))
		if got != tt.want {
			t.Errorf("%s: Keccak256 = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestKeccak256MultipleInputs(t *testing.T) {
	combined := Keccak256([]byte("helloworld"))
	separate := Keccak256([]byte("hello"), []byte("world"))
	if hex.EncodeToString(combined) != hex.EncodeToString(separate) {
		t.Errorf("Keccak256 multi-input mismatch: %x != %x", combined, separate)
	}
}

func TestKeccak256Hash(t *testing.T) {
	if h := Keccak256Hash(); h != common.HexToHash(emptyKeccak) {
		t.Errorf("Keccak256Hash() = %s, want %s", h, emptyKeccak)
	}
}

// A request leaf is the hash of the little-endian id in a 32-byte word, so
// id 1 differs from the single byte 0x01.
func TestRequestLeafPreimage(t *testing.T) {
	var word [32]byte
	binary.LittleEndian.PutUint64(word[:8], 1)
	leaf := requestLeaf(1)
	if common.Hash(leaf) != Keccak256Hash(word[:]) {
		t.Fatalf("requestLeaf(1) = %x, want keccak of padded word", leaf)
	}
	if hex.EncodeToString(leaf[:]) == "5fe7f977e71dba2ea1a68e21057beebb9be2ac30c6410aa38d4f3fbe41dcffd2" {
		t.Fatal("requestLeaf(1) must not hash the bare byte")
	}
}
