// Package dentry implements the fixed-size directory entry: a name/inode-
// index pair packed into a directory's data blocks.
//
// Modeled on file_systems/unixv1/dirents.go and file_systems/unixv6/dirents.go,
// which pack a null-terminated name plus an inode number into a fixed-width
// record the same way.
package dentry

import (
	"bytes"
	"encoding/binary"

	"github.com/dargueta/raidfs/errors"
)

// MaxName is the maximum number of bytes stored for a directory entry name.
// Shorter names are NUL-padded; a name of exactly MaxName bytes is stored
// with no terminating NUL.
const MaxName = 28

// WireSize is the on-disk size of one directory entry: MaxName bytes of
// name plus an 8-byte inode index.
const WireSize = MaxName + 8

// Dentry is a single directory entry.
type Dentry struct {
	Name string
	Num  int64
}

// Empty reports whether this is an empty slot. Emptiness is keyed off a
// blank name alone; the inode number is not consulted. Removed entries are
// written back as the zero Dentry, and "." and ".." are never stored, so a
// stored entry never names inode 0.
func (d Dentry) Empty() bool {
	return d.Name == ""
}

// PerBlock returns how many directory entries fit in one block of the
// given size.
func PerBlock(blockSize int) int {
	return blockSize / WireSize
}

// Encode writes the entry's wire representation into dst, which must be at
// least WireSize bytes.
func (d Dentry) Encode(dst []byte) errors.DriverError {
	if len(dst) < WireSize {
		return errors.ErrInvalidArgument.WithMessage("dentry buffer too small")
	}
	if len(d.Name) > MaxName {
		return errors.ErrInvalidArgument.WithMessage("name exceeds MAX_NAME")
	}

	var nameBuf [MaxName]byte
	copy(nameBuf[:], d.Name)

	buf := new(bytes.Buffer)
	buf.Grow(WireSize)
	buf.Write(nameBuf[:])
	if err := binary.Write(buf, binary.LittleEndian, d.Num); err != nil {
		return errors.NewIOError(err)
	}
	copy(dst, buf.Bytes())
	return nil
}

// Decode parses a directory entry from its on-disk wire representation.
func Decode(src []byte) (Dentry, errors.DriverError) {
	if len(src) < WireSize {
		return Dentry{}, errors.ErrFileSystemCorrupted.WithMessage("dentry buffer too small")
	}

	nameBytes := src[:MaxName]
	nullIdx := bytes.IndexByte(nameBytes, 0)
	if nullIdx < 0 {
		nullIdx = len(nameBytes)
	}

	var num int64
	reader := bytes.NewReader(src[MaxName:WireSize])
	if err := binary.Read(reader, binary.LittleEndian, &num); err != nil {
		return Dentry{}, errors.NewIOError(err)
	}

	return Dentry{Name: string(nameBytes[:nullIdx]), Num: num}, nil
}

// ReadAll parses every directory entry slot packed into block.
func ReadAll(block []byte) ([]Dentry, errors.DriverError) {
	n := PerBlock(len(block))
	out := make([]Dentry, n)
	for i := 0; i < n; i++ {
		d, err := Decode(block[i*WireSize : (i+1)*WireSize])
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// WriteAt encodes d into slot index within block.
func WriteAt(block []byte, index int, d Dentry) errors.DriverError {
	start := index * WireSize
	if start+WireSize > len(block) {
		return errors.ErrInvalidArgument.WithMessage("dentry slot index out of range")
	}
	return d.Encode(block[start : start+WireSize])
}
