package sdfeval

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/soypat/geometry/ms3"
)

// VecPool stores reusable buffers for SDF evaluation. Operations whose
// evaluation needs scratch memory, such as binary combines and domain
// remaps, acquire it from the VecPool passed through userData.
// A VecPool is not safe for concurrent use.
type VecPool struct {
	V3    bufPool[ms3.Vec]
	Float bufPool[float32]
}

// GetVecPool extracts a *VecPool from v. v may be a *VecPool or implement a VecPool() *VecPool method.
func GetVecPool(v any) (*VecPool, error) {
	switch vp := v.(type) {
	case *VecPool:
		if vp == nil {
			return nil, errors.New("nil VecPool")
		}
		return vp, nil
	case interface{ VecPool() *VecPool }:
		pool := vp.VecPool()
		if pool == nil {
			return nil, fmt.Errorf("%T returned nil VecPool", v)
		}
		return pool, nil
	}
	return nil, fmt.Errorf("want userData of type %T, got %T", &VecPool{}, v)
}

// AssertAllReleased returns an error if any buffer is still acquired. Useful for
// checking that evaluators release everything they acquire.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.V3.assertAllReleased()
	if err != nil {
		return fmt.Errorf("V3 pool: %w", err)
	}
	err = vp.Float.assertAllReleased()
	if err != nil {
		return fmt.Errorf("Float pool: %w", err)
	}
	return nil
}

type bufPool[T any] struct {
	_ins      [][]T
	_acquired []bool
}

// Acquire returns a buffer of the given length. It must be returned with Release.
func (bp *bufPool[T]) Acquire(length int) []T {
	for i, buf := range bp._ins {
		if !bp._acquired[i] && cap(buf) >= length {
			bp._acquired[i] = true
			return buf[:length]
		}
	}
	buf := make([]T, length)
	bp._ins = append(bp._ins, buf)
	bp._acquired = append(bp._acquired, true)
	return buf
}

// Release returns a buffer obtained from Acquire to the pool.
func (bp *bufPool[T]) Release(buf []T) error {
	if cap(buf) == 0 {
		return errors.New("release of empty buffer")
	}
	ptr := unsafe.SliceData(buf)
	for i, ins := range bp._ins {
		if unsafe.SliceData(ins) == ptr {
			if !bp._acquired[i] {
				return errors.New("double release of buffer")
			}
			bp._acquired[i] = false
			return nil
		}
	}
	return errors.New("release of buffer not acquired from pool")
}

func (bp *bufPool[T]) assertAllReleased() error {
	for i, acquired := range bp._acquired {
		if acquired {
			return fmt.Errorf("buffer %d of length %d not released", i, len(bp._ins[i]))
		}
	}
	return nil
}
