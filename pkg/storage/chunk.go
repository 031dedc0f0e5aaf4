package storage

import (
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	// ChunkAlignment is the resumable upload granularity required by GCS
	ChunkAlignment = 256 << 10

	MinChunkSize = 8 << 20
	MaxChunkSize = 512 << 20

	memoryShare = 16
)

// ChunkSize derives an upload part size from the available memory: one
// sixteenth of it, aligned down to ChunkAlignment and clamped to
// [MinChunkSize, MaxChunkSize].
func ChunkSize(availableMemory uint64) int64 {
	size := int64(availableMemory / memoryShare)
	size -= size % ChunkAlignment

	if size < MinChunkSize {
		return MinChunkSize
	}
	if size > MaxChunkSize {
		return MaxChunkSize
	}
	return size
}

// DefaultChunkSize returns ChunkSize for the memory currently available on the host
func DefaultChunkSize() int64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MinChunkSize
	}
	return ChunkSize(vm.Available)
}
