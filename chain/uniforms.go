package chain

import (
	"encoding/binary"
	"math"

	"github.com/shaderforge/slangchain/reflect"
)

// UniformStorage is one pass's dual UBO/push-constant byte arena: two flat
// buffers sized by reflection, overwritten every frame (spec.md §4.7).
// Reflection has already placed every member at its std140/430-equivalent
// offset, so writes here need no alignment fixups.
type UniformStorage struct {
	UBO  []byte
	Push []byte
}

func NewUniformStorage(uboSize, pushSize uint32) *UniformStorage {
	return &UniformStorage{UBO: make([]byte, uboSize), Push: make([]byte, pushSize)}
}

func (s *UniformStorage) WriteFloat(offset reflect.MemberOffset, v float32) {
	s.writeBlock(offset, 4, func(buf []byte) { binary.LittleEndian.PutUint32(buf, math.Float32bits(v)) })
}

func (s *UniformStorage) WriteUint(offset reflect.MemberOffset, v uint32) {
	s.writeBlock(offset, 4, func(buf []byte) { binary.LittleEndian.PutUint32(buf, v) })
}

func (s *UniformStorage) WriteInt(offset reflect.MemberOffset, v int32) {
	s.writeBlock(offset, 4, func(buf []byte) { binary.LittleEndian.PutUint32(buf, uint32(v)) })
}

// WriteVec4 writes (x, y, z, w), the shape every size uniform takes
// (spec.md §4.6: "Sizes are vec4(w, h, 1/w, 1/h)").
func (s *UniformStorage) WriteVec4(offset reflect.MemberOffset, x, y, z, w float32) {
	s.writeBlock(offset, 16, func(buf []byte) {
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(z))
		binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(w))
	})
}

func (s *UniformStorage) WriteMat4(offset reflect.MemberOffset, m [16]float32) {
	s.writeBlock(offset, 64, func(buf []byte) {
		for i, v := range m {
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
		}
	})
}

// writeBlock writes to whichever side(s) of offset are populated, per
// spec.md §3: "for any name, only one stage's offset may appear in a given
// block" but both UBO and push may be populated for the same logical name.
func (s *UniformStorage) writeBlock(offset reflect.MemberOffset, size int, fill func([]byte)) {
	if offset.UBO != nil {
		start := int(*offset.UBO)
		fill(s.UBO[start : start+size])
	}
	if offset.Push != nil {
		start := int(*offset.Push)
		fill(s.Push[start : start+size])
	}
}

// IdentityMat4 is the default MVP used when the caller supplies none.
func IdentityMat4() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
