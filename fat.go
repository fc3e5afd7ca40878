package fat32nav

import (
	"github.com/kesmeh/fat32nav/checkpoint"
)

// fatEntry is a 32-bit slot in the file allocation table. Only the low 28
// bits carry the cluster number; the top nibble is reserved and masked off
// when the entry is read.
type fatEntry uint32

const (
	// fatEntryMask keeps the 28 valid bits of a FAT32 entry.
	fatEntryMask = 0x0FFFFFFF

	// badClusterValue marks a cluster as unusable; traversal must stop
	// with an error.
	badClusterValue fatEntry = 0x0FFFFFF7

	// endOfChainValue and everything above it terminates a chain.
	endOfChainValue fatEntry = 0x0FFFFFF8
)

// Value returns the raw 28-bit entry value.
func (e fatEntry) Value() uint32 {
	return uint32(e)
}

// IsFree reports whether the cluster is unallocated.
func (e fatEntry) IsFree() bool {
	return e == 0
}

// IsBadCluster reports whether the entry is the bad-cluster sentinel.
func (e fatEntry) IsBadCluster() bool {
	return e == badClusterValue
}

// IsEndOfChain reports whether the entry terminates a cluster chain.
func (e fatEntry) IsEndOfChain() bool {
	return e >= endOfChainValue
}

// IsNextCluster reports whether the entry points at a further data cluster.
// Cluster numbers start at 2; 0 and 1 are reserved.
func (e fatEntry) IsNextCluster() bool {
	return e >= 2 && e <= 0x0FFFFFF6
}

// firstFATSector is the sector where the first file allocation table starts.
func (h *Header) firstFATSector() uint32 {
	return uint32(h.BPB.ReservedSectors)
}

// firstDataSector is the sector where cluster 2 starts, behind the reserved
// region and all FAT copies.
func (h *Header) firstDataSector() uint32 {
	return h.firstFATSector() + uint32(h.BPB.CountFATs)*h.EBPB.SectorsPerFAT
}

// bytesPerCluster is the allocation unit of the volume in bytes.
func (h *Header) bytesPerCluster() int64 {
	return int64(h.BPB.SectorsPerCluster) * int64(h.BPB.BytesPerSector)
}

// clusterAddress converts a cluster number into the absolute byte offset of
// its first sector.
func (h *Header) clusterAddress(cluster fatEntry) int64 {
	sector := int64(h.firstDataSector()) + (int64(cluster)-2)*int64(h.BPB.SectorsPerCluster)
	return sector * int64(h.BPB.BytesPerSector)
}

// fatEntryAddress is the absolute byte offset of the FAT slot for a cluster.
func (h *Header) fatEntryAddress(cluster fatEntry) int64 {
	return int64(h.firstFATSector())*int64(h.BPB.BytesPerSector) + int64(cluster)*4
}

// nextCluster reads the FAT link of the given cluster.
func (fs *Fs) nextCluster(cluster fatEntry) (fatEntry, error) {
	if err := fs.image.seek(fs.header.fatEntryAddress(cluster)); err != nil {
		return 0, err
	}
	value, err := fs.image.u32()
	if err != nil {
		return 0, err
	}
	return fatEntry(value) & fatEntryMask, nil
}

// clusterChain walks a FAT chain lazily. Next yields one cluster per call
// until the chain terminates; afterwards Err reports whether it ended on the
// end-of-chain sentinel (nil) or on a bad cluster or read failure.
type clusterChain struct {
	fs       *Fs
	upcoming fatEntry
	err      error
}

func newClusterChain(fs *Fs, start fatEntry) *clusterChain {
	return &clusterChain{fs: fs, upcoming: start & fatEntryMask}
}

// Next returns the next cluster of the chain. It returns false when the
// chain is exhausted or broken.
func (c *clusterChain) Next() (fatEntry, bool) {
	if c.err != nil {
		return 0, false
	}

	cluster := c.upcoming
	if !cluster.IsNextCluster() {
		if cluster.IsBadCluster() {
			c.err = checkpoint.From(ErrBadCluster)
		}
		return 0, false
	}

	next, err := c.fs.nextCluster(cluster)
	if err != nil {
		c.err = err
		return 0, false
	}
	c.upcoming = next

	return cluster, true
}

// Err returns the error that stopped the chain, if any.
func (c *clusterChain) Err() error {
	return c.err
}
